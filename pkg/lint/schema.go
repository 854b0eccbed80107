package lint

import (
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// notebookSchema is the subset of the nbformat v4 schema the validation
// rules care about: the top-level document shape and the per-cell-type
// required keys.
const notebookSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "type": "object",
  "required": ["cells", "metadata", "nbformat", "nbformat_minor"],
  "properties": {
    "cells": {
      "type": "array",
      "items": {"$ref": "#/definitions/cell"}
    },
    "metadata": {"type": "object"},
    "nbformat": {"type": "integer", "minimum": 4, "maximum": 4},
    "nbformat_minor": {"type": "integer", "minimum": 0}
  },
  "definitions": {
    "misc_source": {
      "oneOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}}
      ]
    },
    "cell": {
      "type": "object",
      "required": ["cell_type", "source", "metadata"],
      "properties": {
        "cell_type": {"enum": ["code", "markdown", "raw"]},
        "source": {"$ref": "#/definitions/misc_source"},
        "metadata": {"type": "object"}
      },
      "oneOf": [
        {
          "properties": {"cell_type": {"enum": ["markdown", "raw"]}}
        },
        {
          "properties": {
            "cell_type": {"enum": ["code"]},
            "outputs": {
              "type": "array",
              "items": {"$ref": "#/definitions/output"}
            },
            "execution_count": {"type": ["integer", "null"]}
          },
          "required": ["outputs", "execution_count"]
        }
      ]
    },
    "output": {
      "type": "object",
      "required": ["output_type"],
      "properties": {
        "output_type": {"enum": ["stream", "display_data", "execute_result", "error"]}
      }
    }
  }
}`

var notebookSchemaLoader = gojsonschema.NewStringLoader(notebookSchema)

// validateNotebookAgainstSchema returns the list of schema violations for the
// given notebook document, or an error when the validation itself failed.
func validateNotebookAgainstSchema(content []byte) ([]string, error) {
	result, err := gojsonschema.Validate(notebookSchemaLoader, gojsonschema.NewBytesLoader(content))
	if err != nil {
		return nil, errors.Wrap(err, "failed to run notebook schema validation")
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}

	return violations, nil
}

package lint

import (
	"slices"

	"github.com/spf13/afero"
)

func GetRules(fs afero.Fs) ([]Rule, error) {
	rules := []Rule{
		&SimpleRule{
			Identifier:       "collection-name-valid",
			Fast:             true,
			Validator:        EnsureCollectionNameIsValid,
			ApplicableLevels: []Level{LevelCollection},
		},
		&SimpleRule{
			Identifier:       "schedule-valid-cron",
			Fast:             true,
			Validator:        EnsureScheduleIsValidCron,
			ApplicableLevels: []Level{LevelCollection},
		},
		&SimpleRule{
			Identifier:        "requires-exist",
			Fast:              true,
			Validator:         CallFuncForEveryTutorial(EnsureRequiresExistForASingleTutorial),
			TutorialValidator: EnsureRequiresExistForASingleTutorial,
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
		},
		&SimpleRule{
			Identifier:       "acyclic-collection",
			Fast:             true,
			Validator:        EnsureCollectionHasNoCycles,
			ApplicableLevels: []Level{LevelCollection},
		},
		&SimpleRule{
			Identifier:       "header-image-exists",
			Fast:             true,
			Validator:        EnsureHeaderImageExists(fs),
			ApplicableLevels: []Level{LevelCollection},
		},
		&SimpleRule{
			Identifier:       "excluded-paths-exist",
			Fast:             true,
			Validator:        EnsureExcludedPathsExist(fs),
			ApplicableLevels: []Level{LevelCollection},
			Severity:         ValidatorSeverityWarning,
		},
		&SimpleRule{
			Identifier:        "readme-exists",
			Fast:              true,
			Validator:         CallFuncForEveryTutorial(EnsureReadmeExistsForASingleTutorial),
			TutorialValidator: EnsureReadmeExistsForASingleTutorial,
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
			Severity:          ValidatorSeverityWarning,
		},
		&SimpleRule{
			Identifier:        "readme-header-image",
			Fast:              true,
			Validator:         CallFuncForEveryTutorial(EnsureReadmeReferencesHeaderImageForASingleTutorial(fs)),
			TutorialValidator: EnsureReadmeReferencesHeaderImageForASingleTutorial(fs),
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
			Severity:          ValidatorSeverityWarning,
		},
		&SimpleRule{
			Identifier:        "artifact-kinds",
			Fast:              true,
			Validator:         CallFuncForEveryTutorial(EnsureArtifactKindsForASingleTutorial(fs)),
			TutorialValidator: EnsureArtifactKindsForASingleTutorial(fs),
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
			Severity:          ValidatorSeverityWarning,
		},
		&SimpleRule{
			Identifier:        "notebook-pair",
			Fast:              true,
			Validator:         CallFuncForEveryTutorial(EnsureNotebookPairExistsForASingleTutorial(fs)),
			TutorialValidator: EnsureNotebookPairExistsForASingleTutorial(fs),
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
			Severity:          ValidatorSeverityWarning,
		},
		&SimpleRule{
			Identifier:        "notebook-parses",
			Validator:         CallFuncForEveryTutorial(EnsureNotebookParsesForASingleTutorial(fs)),
			TutorialValidator: EnsureNotebookParsesForASingleTutorial(fs),
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
		},
		&SimpleRule{
			Identifier:        "notebook-schema",
			Validator:         CallFuncForEveryTutorial(EnsureNotebookMatchesSchemaForASingleTutorial(fs)),
			TutorialValidator: EnsureNotebookMatchesSchemaForASingleTutorial(fs),
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
		},
		&SimpleRule{
			Identifier:        "kernel-declared",
			Validator:         CallFuncForEveryTutorial(EnsureKernelIsResolvableForASingleTutorial(fs)),
			TutorialValidator: EnsureKernelIsResolvableForASingleTutorial(fs),
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
			Severity:          ValidatorSeverityWarning,
		},
		&SimpleRule{
			Identifier:        "stripped-outputs",
			Validator:         CallFuncForEveryTutorial(EnsureSourceNotebookHasNoOutputsForASingleTutorial(fs)),
			TutorialValidator: EnsureSourceNotebookHasNoOutputsForASingleTutorial(fs),
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
			Severity:          ValidatorSeverityWarning,
		},
		&SimpleRule{
			Identifier:        "expanded-error-free",
			Validator:         CallFuncForEveryTutorial(EnsureExpandedNotebookIsErrorFreeForASingleTutorial(fs)),
			TutorialValidator: EnsureExpandedNotebookIsErrorFreeForASingleTutorial(fs),
			ApplicableLevels:  []Level{LevelCollection, LevelTutorial},
		},
	}

	return rules, nil
}

func FilterRulesByLevel(rules []Rule, level Level) []Rule {
	filtered := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if slices.Contains(rule.GetApplicableLevels(), level) {
			filtered = append(filtered, rule)
		}
	}

	return filtered
}

func FilterRulesBySpeed(rules []Rule, fastOnly bool) []Rule {
	if !fastOnly {
		return rules
	}

	filtered := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsFast() {
			filtered = append(filtered, rule)
		}
	}

	return filtered
}

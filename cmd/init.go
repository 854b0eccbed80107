package cmd

import (
	"fmt"
	fs2 "io/fs"
	"log"
	"os"
	path2 "path"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nbflow-io/nbflow/pkg/config"
	"github.com/nbflow-io/nbflow/templates"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

const (
	DefaultTemplate   = "default"
	DefaultFolderName = "nbflow-collection"
)

var choices = templates.TemplateNames()

type templatePicker struct {
	cursor int
	choice string
}

func (m templatePicker) Init() tea.Cmd {
	return nil
}

func (m templatePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "enter":
			m.choice = choices[m.cursor]
			return m, tea.Quit
		case "down", "j":
			m.cursor++
			if m.cursor >= len(choices) {
				m.cursor = 0
			}
		case "up", "k":
			m.cursor--
			if m.cursor < 0 {
				m.cursor = len(choices) - 1
			}
		}
	}

	return m, nil
}

func (m templatePicker) View() string {
	s := strings.Builder{}
	s.WriteString("Please select a template below\n\n")

	for i, choice := range choices {
		if m.cursor == i {
			s.WriteString(" [x] ")
		} else {
			s.WriteString(" [ ] ")
		}
		s.WriteString(choice)
		s.WriteString("\n")
	}
	s.WriteString("\n(press q to quit)\n")

	return s.String()
}

func Init() *cli.Command {
	templateList := templates.TemplateNames()
	p := tea.NewProgram(templatePicker{})
	return &cli.Command{
		Name:  "init",
		Usage: "init a tutorial collection",
		ArgsUsage: fmt.Sprintf(
			"[template name to be used: %s] [name of the folder where the collection will be created]",
			strings.Join(templateList, "|"),
		),
		Flags: []cli.Flag{},
		Action: func(c *cli.Context) error {
			defer func() {
				if err := recover(); err != nil {
					log.Println("=======================================")
					log.Println("nbflow encountered an unexpected error, please report the issue.")
					log.Println(err)
					log.Println("=======================================")
				}
			}()

			templateName := c.Args().Get(0)
			if len(templateName) == 0 {
				m, err := p.Run()
				if err != nil {
					fmt.Println("Oh no:", err)
					os.Exit(1)
				}

				if m, ok := m.(templatePicker); ok && m.choice != "" {
					templateName = m.choice
				}
			}

			_, err := templates.Templates.ReadDir(templateName)
			if err != nil {
				errorPrinter.Printf("Template '%s' not found\n", templateName)
				return cli.Exit("", 1)
			}

			inputPath := c.Args().Get(1)
			if inputPath == "" {
				if templateName == DefaultTemplate {
					inputPath = DefaultFolderName
				} else {
					inputPath = templateName
				}
			}

			if _, err := os.Stat(inputPath); !os.IsNotExist(err) {
				errorPrinter.Printf("The folder %s already exists, please choose a different name\n", inputPath)
				return cli.Exit("", 1)
			}
			dir, _ := filepath.Split(inputPath)
			if dir != "" {
				errorPrinter.Printf("Traversing up or down in the folder structure is not allowed, provide base folder name only.\n")
				return cli.Exit("", 1)
			}

			err = os.Mkdir(inputPath, 0o755)
			if err != nil {
				errorPrinter.Printf("Failed to create the folder %s: %v\n", inputPath, err)
				return cli.Exit("", 1)
			}

			_, err = config.LoadOrCreate(afero.NewOsFs(), path2.Join(inputPath, ".nbflow.yml"))
			if err != nil {
				errorPrinter.Printf("Could not write .nbflow.yml file: %v\n", err)
				return err
			}

			err = fs2.WalkDir(templates.Templates, templateName, func(path string, d fs2.DirEntry, err error) error {
				if err != nil {
					return err
				}

				// Walk returns the root as if it was its own content
				if path == templateName {
					return nil
				}

				if d.IsDir() {
					return nil
				}

				fileContents, err := templates.Templates.ReadFile(path)
				if err != nil {
					return err
				}

				relativePath, baseName := filepath.Split(path)
				relativePath = strings.TrimPrefix(relativePath, templateName)
				absolutePath := inputPath + relativePath

				err = os.MkdirAll(absolutePath, os.ModePerm)
				if err != nil {
					errorPrinter.Printf("Could not create the %s folder: %v\n", absolutePath, err)
					return err
				}

				err = os.WriteFile(filepath.Join(absolutePath, baseName), fileContents, 0o644) //nolint:gosec
				if err != nil {
					errorPrinter.Printf("Could not write the %s file: %v\n", filepath.Join(absolutePath, baseName), err)
					return err
				}

				return nil
			})
			if err != nil {
				errorPrinter.Printf("Could not copy template %s: %s\n", templateName, err)
				return cli.Exit("", 1)
			}

			successPrinter.Printf("Created a new collection from the '%s' template under '%s'.\n", templateName, inputPath)

			return nil
		},
	}
}

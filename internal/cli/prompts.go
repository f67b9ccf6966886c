package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"HKQuant/internal/taskboard"
)

type taskAnswers struct {
	Title       string
	Description string
	Priority    string
}

// promptTask asks for the fields of a new task.
func promptTask() (taskAnswers, error) {
	qs := []*survey.Question{
		{
			Name:   "title",
			Prompt: &survey.Input{Message: "Task title:"},
			Validate: func(val interface{}) error {
				if strings.TrimSpace(val.(string)) == "" {
					return fmt.Errorf("title cannot be empty")
				}
				return nil
			},
		},
		{
			Name:   "description",
			Prompt: &survey.Input{Message: "Description (optional):"},
		},
		{
			Name: "priority",
			Prompt: &survey.Select{
				Message: "Priority:",
				Options: []string{"1", "2", "3", "4", "5"},
				Default: "3",
				Help:    "1 is the most urgent",
			},
		},
	}
	var ans taskAnswers
	err := survey.Ask(qs, &ans)
	return ans, err
}

func (t taskAnswers) priority() int {
	p, err := strconv.Atoi(t.Priority)
	if err != nil {
		return 3
	}
	return p
}

// promptStatus asks for the column to move a task to.
func promptStatus(current taskboard.Status) (taskboard.Status, error) {
	var choice string
	err := survey.AskOne(&survey.Select{
		Message: "Move to:",
		Options: []string{string(taskboard.StatusTodo), string(taskboard.StatusDoing), string(taskboard.StatusDone)},
		Default: string(current),
	}, &choice)
	if err != nil {
		return "", err
	}
	return taskboard.ParseStatus(choice)
}

func confirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message}, &ok)
	return ok, err
}

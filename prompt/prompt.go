package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
	"github.com/samber/lo"

	"github.com/xeptore/rockar/rockar"
)

// Label is how an album is shown in the picker.
func Label(a *rockar.Album) string {
	if a.Year == "" {
		return a.Name
	}

	return a.Year + " - " + a.Name
}

// SelectAlbums lets the user pick albums on the terminal. It returns
// syscall.ENOTTY when there is no terminal to ask on.
func SelectAlbums(albums []*rockar.Album) ([]*rockar.Album, error) {
	if !isatty.IsTerminal(os.Stdout.Fd()) || !isatty.IsTerminal(os.Stdin.Fd()) {
		return nil, syscall.ENOTTY
	}

	if len(albums) == 0 {
		return nil, nil
	}

	options := lo.Map(albums, func(a *rockar.Album, _ int) string { return Label(a) })

	var picked []int
	q := &survey.MultiSelect{ //nolint:exhaustruct
		Message:  "Discos a descargar:",
		Options:  options,
		PageSize: 15,
	}
	askOpts := []survey.AskOpt{
		survey.WithValidator(survey.Required),
		survey.WithStdio(os.Stdin, os.Stdout, os.Stderr),
	}
	if err := survey.AskOne(q, &picked, askOpts...); nil != err {
		if errors.Is(err, terminal.InterruptErr) {
			return nil, context.Canceled
		}

		return nil, fmt.Errorf("failed to ask for albums: %v", err)
	}

	return lo.Map(picked, func(i int, _ int) *rockar.Album { return albums[i] }), nil
}

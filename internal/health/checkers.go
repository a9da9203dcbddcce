package health

import (
	"context"
	"fmt"
	"os"

	"github.com/sprachpilot/parlo/internal/score"
)

// LessonFile returns a checker that verifies the lesson document still exists
// and is a regular file. The lesson is read once at startup; this catches the
// file disappearing under a running server.
func LessonFile(path string) Checker {
	return Checker{
		Name: "lesson",
		Check: func(context.Context) error {
			fi, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("lesson file: %w", err)
			}
			if fi.IsDir() {
				return fmt.Errorf("lesson path %q is a directory", path)
			}
			return nil
		},
	}
}

// LanguagePackFile returns a checker for an external language pack file.
// Lessons using the built-in pack don't need one.
func LanguagePackFile(path string) Checker {
	return Checker{
		Name: "language_pack",
		Check: func(context.Context) error {
			fi, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("language pack file: %w", err)
			}
			if fi.IsDir() {
				return fmt.Errorf("language pack path %q is a directory", path)
			}
			return nil
		},
	}
}

// RemoteJudge returns a checker that probes the remote pronunciation
// assessment proxy. Only wired when remote scoring is configured, so a
// missing proxy fails readiness instead of the learner's first attempt.
func RemoteJudge(rj *score.RemoteJudge) Checker {
	return Checker{
		Name:  "remote_judge",
		Check: rj.Healthy,
	}
}

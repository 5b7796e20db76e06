package topicdisc

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	log    = logrus.New()
	Logger = log
)

func init() {
	// set level from env
	if x, exists := os.LookupEnv("LOG"); exists {
		if level, err := logrus.ParseLevel(strings.ToLower(x)); err == nil {
			Logger.SetLevel(level)
		}
	}
}

// SetLogLevel sets the level of Logger by name.
func SetLogLevel(name string) error {
	level, err := logrus.ParseLevel(strings.ToLower(name))
	if err != nil {
		return errors.Wrap(err, "setting log level")
	}
	Logger.SetLevel(level)
	return nil
}

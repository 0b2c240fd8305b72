// README: Structured logger setup (logrus).
package infra

import (
	"os"

	"github.com/sirupsen/logrus"
)

func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("ROAM_LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

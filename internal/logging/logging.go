// Package logging supplies the injected logging sink used across the LSNP
// peer. There is no package-level singleton logger: every component takes
// a *logrus.Logger (or the New() default) at construction time, an
// explicit dependency rather than reaching for global state.
package logging

import "github.com/sirupsen/logrus"

// New returns a logger configured with the peer's conventional text
// output. Verbose mode (the "verbose" command) raises the level to Debug.
func New() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	log.SetLevel(logrus.InfoLevel)
	return log
}

// SetVerbose toggles Debug-level logging on an existing logger.
func SetVerbose(log *logrus.Logger, verbose bool) {
	if verbose {
		log.SetLevel(logrus.DebugLevel)
		return
	}
	log.SetLevel(logrus.InfoLevel)
}

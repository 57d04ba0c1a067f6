// Package common carries the logging backbone every component in the store
// logs through: a global logrus instance plus a couple of thin wrappers for
// attaching structured fields and a running binary's own version.
package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes logrus output by level: error-level entries go to
// stderr, everything else to stdout, so container log collectors can treat
// the two streams differently without parsing the formatted line.
type OutputSplitter struct{}

func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the package-wide logrus instance every ContextLogger wraps.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}

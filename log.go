package wabisabi

import (
	"github.com/nothingmuch/wabisabi/graph"
	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.StandardLogger()
	graph.Logger = Logger
}

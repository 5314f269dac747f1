package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("pipeline")
	logger.AddAppender(NewWriterAppender(&buf))

	logger.Infow("processed frame", "points", 12, "topic", "/pcl_table")
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	parts := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "pipeline")
	test.That(t, parts[3], test.ShouldStartWith, "impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "processed frame")
	test.That(t, parts[5], test.ShouldEqual, `{"points":12,"topic":"/pcl_table"}`)

	logger.Debugf("voxel grid kept %d points", 3)
	line, err = buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	test.That(t, line, test.ShouldContainSubstring, "voxel grid kept 3 points")
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("root")
	logger.AddAppender(NewWriterAppender(&buf))
	logger.SetLevel(WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)

	logger.Info("dropped")
	logger.Debug("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	logger.Error("kept")
	test.That(t, buf.String(), test.ShouldContainSubstring, "kept")

	for inp, want := range map[string]Level{"debug": DEBUG, "INFO": INFO, "warn": WARN, "Error": ERROR} {
		level, err := LevelFromString(inp)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, want)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSubloggerAndObserver(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("ransac")
	sub.Warnw("unpaired", "key")

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	entry := logs.All()[0]
	test.That(t, entry.LoggerName, test.ShouldEqual, "ransac")
	test.That(t, entry.Message, test.ShouldEqual, "unpaired")
	test.That(t, entry.ContextMap()["key"], test.ShouldNotBeNil)

	nested := sub.Sublogger("iterations")
	nested.Info("x")
	test.That(t, logs.All()[1].LoggerName, test.ShouldEqual, "ransac.iterations")
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

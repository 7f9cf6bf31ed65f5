package log_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/dudk/block/log"
)

func TestSilent(t *testing.T) {
	l := log.Silent()
	assert.False(t, l.IsLevelEnabled(logrus.ErrorLevel))
	l.WithField("category", log.Topology).Error("never printed")
}

func TestGetLogger(t *testing.T) {
	tests := []struct {
		env      string
		expected logrus.Level
	}{
		{env: "", expected: logrus.InfoLevel},
		{env: "true", expected: logrus.DebugLevel},
		{env: "1", expected: logrus.DebugLevel},
		{env: "false", expected: logrus.InfoLevel},
		{env: "verbose", expected: logrus.InfoLevel},
	}
	for _, test := range tests {
		t.Run(test.env, func(t *testing.T) {
			t.Setenv(log.DebugEnv, test.env)
			assert.Equal(t, test.expected, log.GetLogger().GetLevel())
		})
	}
}

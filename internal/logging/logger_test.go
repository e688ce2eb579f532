package logging

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFactory struct {
	created int
}

func (f *recordingFactory) CreateLogger(ctx context.Context) Logger {
	f.created++
	return newLogrusLogger(ctx)
}

func TestComponentLoggerWritesField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetLevel("info"))
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		_ = SetLevel("warn")
	})

	WithComponent("fst").Infof("states=%d", 3)
	assert.Contains(t, buf.String(), "component=fst")
	assert.Contains(t, buf.String(), "states=3")
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	assert.Error(t, SetLevel("chatty"))
}

func TestFactoryOverride(t *testing.T) {
	f := &recordingFactory{}
	SetLoggerFactory(f)
	t.Cleanup(func() { SetLoggerFactory(nil) })

	NewLogger(context.Background())
	assert.Equal(t, 1, f.created)
}

func TestComponentLoggerFollowsLateFactory(t *testing.T) {
	l := WithComponent("decoder").WithField("stage", "compose")

	var buf bytes.Buffer
	f := &bufferFactory{out: &buf}
	SetLoggerFactory(f)
	t.Cleanup(func() { SetLoggerFactory(nil) })

	l.Warnf("skipping %q", "4")
	assert.Contains(t, buf.String(), "component=decoder")
	assert.Contains(t, buf.String(), "stage=compose")
	assert.Contains(t, buf.String(), `skipping \"4\"`)
}

type bufferFactory struct {
	out *bytes.Buffer
}

func (f *bufferFactory) CreateLogger(ctx context.Context) Logger {
	l := logrus.New()
	l.SetOutput(f.out)
	return &logrusLogger{entry: l.WithContext(ctx)}
}

package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"codesight/internal/llmclient"
)

// scripted returns queued errors before succeeding.
type scripted struct {
	errs  []error
	calls atomic.Int32
	delay time.Duration
}

func (s *scripted) Name() string                { return "scripted" }
func (s *scripted) Close() error                { return nil }
func (s *scripted) CountTokens(text string) int { return len(strings.Fields(text)) }
func (s *scripted) TokenCapacity() int          { return 1024 }
func (s *scripted) Generate(ctx context.Context, prompt string) (string, error) {
	n := int(s.calls.Add(1)) - 1
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if n < len(s.errs) {
		return "", s.errs[n]
	}
	return "ok:" + prompt, nil
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func TestRetry_RecoversFromTransientErrors(t *testing.T) {
	inner := &scripted{errs: []error{errors.New("503"), errors.New("503")}}
	cli := Wrap(inner, Retry(3, time.Millisecond))

	out, err := cli.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok:p", out)
	assert.EqualValues(t, 3, inner.calls.Load())
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	inner := &scripted{errs: []error{llmclient.NewPermanentError(errors.New("bad key"))}}
	cli := Wrap(inner, Retry(5, time.Millisecond))

	_, err := cli.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, llmclient.IsPermanent(err))
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("boom")
	inner := &scripted{errs: []error{boom, boom, boom, boom}}
	cli := Wrap(inner, Retry(2, time.Millisecond))

	_, err := cli.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestTimeout_BoundsSlowCalls(t *testing.T) {
	inner := &scripted{delay: time.Second}
	cli := Wrap(inner, Timeout(20*time.Millisecond))

	start := time.Now()
	_, err := cli.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRate_RPS2_Burst1_Spacing(t *testing.T) {
	inner := &scripted{}
	cli := Wrap(inner, RateLimit(2, 1))
	t.Cleanup(func() { _ = cli.Close() })

	ctx := context.Background()
	start := time.Now()
	_, err := cli.Generate(ctx, "p")
	require.NoError(t, err)
	_, err = cli.Generate(ctx, "p")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 450*time.Millisecond)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestRate_AcquireHonorsCancel(t *testing.T) {
	cli := Wrap(&scripted{}, RateLimit(0.5, 1))
	t.Cleanup(func() { _ = cli.Close() })

	_, err := cli.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cli.Generate(ctx, "second")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingHook struct {
	before []string
	after  []string
}

func (r *recordingHook) Before(_ context.Context, phase, _ string) { r.before = append(r.before, phase) }
func (r *recordingHook) After(_ context.Context, phase, _ string, _ error) {
	r.after = append(r.after, phase)
}

func TestHooks_SeePhase(t *testing.T) {
	hook := &recordingHook{}
	cli := Wrap(&scripted{}, WithLogging(zap.NewNop()), WithHooks(nil))

	ctx := ContextWithHook(WithPhase(context.Background(), "qna.plan"), hook)
	_, err := cli.Generate(ctx, "p")
	require.NoError(t, err)

	assert.Equal(t, []string{"qna.plan"}, hook.before)
	assert.Equal(t, []string{"qna.plan"}, hook.after)
	assert.Equal(t, "unknown", PhaseFrom(context.Background()))
}

func TestFakeClient_PhaseKeyed(t *testing.T) {
	f := NewFakeClient()
	f.Responses["summary"] = "custom"
	f.Fail["duplication"] = errors.New("down")

	out, err := f.Generate(WithPhase(context.Background(), "summary"), "x")
	require.NoError(t, err)
	assert.Equal(t, "custom", out)

	_, err = f.Generate(WithPhase(context.Background(), "duplication"), "x")
	assert.Error(t, err)

	a, _ := f.Generate(WithPhase(context.Background(), "other"), "same")
	b, _ := f.Generate(WithPhase(context.Background(), "other"), "same")
	assert.Equal(t, a, b)
	assert.Equal(t, 2, f.Calls("other"))
}

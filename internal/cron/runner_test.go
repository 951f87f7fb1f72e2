package cronrunner

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunnerAcceptsFiveAndSixFieldSpecs(t *testing.T) {
	r := New(zap.NewNop(), context.Background())
	for _, spec := range []string{"@every 1h", "0 */5 * * * *", "*/5 * * * *", "@hourly"} {
		if _, err := r.Add(spec, func(context.Context) {}); err != nil {
			t.Fatalf("spec %q: %v", spec, err)
		}
	}
	if got := len(r.Entries()); got != 4 {
		t.Fatalf("expected 4 entries, got %d", got)
	}
	if _, err := r.Add("not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRunnerRecoversPanicsAndPassesBaseContext(t *testing.T) {
	type ctxKey struct{}
	base := context.WithValue(context.Background(), ctxKey{}, "base")
	r := New(zap.NewNop(), base)

	seen := make(chan string, 4)
	if _, err := r.Add("@every 1s", func(ctx context.Context) {
		v, _ := ctx.Value(ctxKey{}).(string)
		seen <- v
		panic("boom")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.Start()
	defer r.Stop()

	for i := 0; i < 2; i++ {
		select {
		case v := <-seen:
			if v != "base" {
				t.Fatalf("expected base context value, got %q", v)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("job did not run (iteration %d)", i)
		}
	}
}

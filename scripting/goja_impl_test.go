package scripting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wudi/pdfengine/elements"
)

func TestGojaEngine_ContextCancellation(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if _, err := engine.Execute(ctx, "while (true) {}"); err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}

	if _, err := engine.Execute(context.Background(), "1 + 1"); err != nil {
		t.Fatalf("engine should recover after cancellation, got %v", err)
	}
}

func TestGojaEngine_ImmediateCancel(t *testing.T) {
	engine := NewEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Execute(ctx, "42"); err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}

func TestTranslate(t *testing.T) {
	var alerts []string
	tr := &Translator{Timeout: time.Second, Alert: func(m string) { alerts = append(alerts, m) }}
	cases := []struct {
		script string
		kind   elements.DestKind
		page   int
		value  string
	}{
		{"this.pageNum = 4;", elements.DestScrollTo, 5, ""},
		{"pageNum++;", elements.DestScrollTo, 3, ""},
		{"this.pageNum = numPages - 1;", elements.DestScrollTo, 10, ""},
		{"app.launchURL('https://example.com', true);", elements.DestLaunchURL, 0, "https://example.com"},
		{"getURL('https://example.org')", elements.DestLaunchURL, 0, "https://example.org"},
		{"app.execMenuItem('NextPage'); app.execMenuItem('Print');", elements.DestNextPage, 0, "NextPage"},
		{"app.execMenuItem('FullScreenMode')", elements.DestFullScreen, 0, "FullScreen"},
	}
	for _, c := range cases {
		dest, err := tr.Translate(context.Background(), c.script, 2, 10)
		if err != nil {
			t.Fatalf("%q: %v", c.script, err)
		}
		if dest == nil || dest.Kind != c.kind || dest.PageNo != c.page || dest.Value != c.value {
			t.Fatalf("%q: got %+v", c.script, dest)
		}
	}

	dest, err := tr.Translate(context.Background(), "app.alert('hi'); this.pageNum = 99;", 1, 10)
	if err != nil || dest != nil {
		t.Fatalf("out of range page should not navigate: %+v, %v", dest, err)
	}
	if len(alerts) != 1 || alerts[0] != "hi" {
		t.Fatalf("alerts %v", alerts)
	}
}

func TestTranslateTimeout(t *testing.T) {
	tr := &Translator{Timeout: 20 * time.Millisecond}
	_, err := tr.Translate(context.Background(), "app.execMenuItem('LastPage'); for(;;){}", 1, 3)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

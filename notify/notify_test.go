package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qapages/config"
	"qapages/errors"
	"qapages/report"
)

func TestSlackDisabled(t *testing.T) {
	t.Parallel()

	s := NewSlack(config.SlackConfig{}, "Geo", zerolog.Nop())
	assert.False(t, s.Enabled())
	err := s.Send(context.Background(), Message{Text: "hi"})
	assert.ErrorIs(t, err, errors.ErrNotificationDisabled)
}

func TestNewSlackDefaults(t *testing.T) {
	t.Parallel()

	s := NewSlack(config.SlackConfig{Channel: "#qa"}, "Geo", zerolog.Nop())
	assert.Equal(t, "Geo-Bot", s.Username)
	assert.Equal(t, ":robot_face:", s.IconEmoji)
	assert.Equal(t, "#qa", s.Channel)
}

func TestSlackWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(config.SlackConfig{WebhookURL: srv.URL}, "Geo", zerolog.Nop())
	require.NoError(t, s.Send(context.Background(), Message{Text: "hello team"}))
	assert.Equal(t, "hello team", got["text"])
	assert.Equal(t, "Geo-Bot", got["username"])
}

func TestSlackWebhookFallsBackToAPI(t *testing.T) {
	t.Parallel()

	var apiCalls atomic.Int32
	var text, channel atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hook":
			w.WriteHeader(http.StatusInternalServerError)
		case "/api/chat.postMessage":
			apiCalls.Add(1)
			_ = r.ParseForm()
			text.Store(r.FormValue("text"))
			channel.Store(r.FormValue("channel"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.0"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewSlack(config.SlackConfig{WebhookURL: srv.URL + "/hook", Token: "xoxb-test", Channel: "#qa"}, "Geo", zerolog.Nop())
	s.APIURL = srv.URL + "/api/"

	require.NoError(t, s.Send(context.Background(), Message{Text: "fallback"}))
	assert.EqualValues(t, 1, apiCalls.Load())
	assert.Equal(t, "fallback", text.Load())
	assert.Equal(t, "#qa", channel.Load())
}

func TestSlackWebhookFailureWithoutToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSlack(config.SlackConfig{WebhookURL: srv.URL}, "", zerolog.Nop())
	err := s.Send(context.Background(), Message{Text: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errors.ErrNotificationDisabled)
}

func TestEmailDisabled(t *testing.T) {
	t.Parallel()

	e := NewEmail(config.EmailConfig{SMTPServer: "smtp.example.com", Port: 587, Username: "bot@example.com"}, "Geo")
	assert.False(t, e.Enabled())
	assert.ErrorIs(t, e.Send(context.Background(), Message{Subject: "s"}), errors.ErrNotificationDisabled)
}

func TestEmailBuild(t *testing.T) {
	t.Parallel()

	e := NewEmail(config.EmailConfig{
		SMTPServer: "smtp.example.com", Port: 587,
		Username: "bot@example.com", Password: "pw", To: "qa@example.com",
	}, "Geo")
	require.True(t, e.Enabled())

	m := e.build(Message{Subject: "Test PASS: Smoke", Text: "plain", HTML: "<p>ok</p>"})
	assert.Equal(t, "[Geo] Test PASS: Smoke", m.Subject)
	assert.Equal(t, []string{"qa@example.com"}, m.To)
	assert.Equal(t, "bot@example.com", m.From)
	assert.Equal(t, "<p>ok</p>", string(m.HTML))
	assert.Empty(t, m.Text)

	m = e.build(Message{Subject: "s", Text: "plain"})
	assert.Equal(t, "plain", string(m.Text))
}

type recorder struct {
	err  error
	sent []Message
}

func (r *recorder) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestMultiContinuesOnFailure(t *testing.T) {
	t.Parallel()

	failing := &recorder{err: fmt.Errorf("boom")}
	disabled := &recorder{err: errors.ErrNotificationDisabled}
	ok := &recorder{}

	m := NewMulti(zerolog.Nop(), failing, disabled, ok)
	assert.Equal(t, 1, m.Send(context.Background(), Message{Text: "x"}))
	assert.Len(t, failing.sent, 1)
	assert.Len(t, disabled.sent, 1)
	assert.Len(t, ok.sent, 1)
}

func TestLaunchMessage(t *testing.T) {
	t.Parallel()

	msg := LaunchMessage("qa", "Smoke", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Contains(t, msg.Text, "*[qa] Smoke* has launched!")
	assert.Contains(t, msg.Text, "2025-01-02 03:04:05")
}

func TestSuiteMessage(t *testing.T) {
	t.Parallel()

	now := time.Now()
	rep := report.Build("Smoke", []report.Result{
		{TestName: "tests/test_auth.py::test_login", Status: report.StatusFail, ErrorMessage: "AssertionError: 401", Duration: 1.5, ScreenshotPath: "screenshots/login.png"},
		{TestName: "test_pay", Status: report.StatusSkip, SkipReason: "sandbox"},
		{TestName: "test_ok", Status: report.StatusPass},
	}, now, now)

	msg := SuiteMessage("staging", rep, map[string]string{"test_login": "Login flow"}, "https://qa.example.com/2025-01-02_03-04-05/index.html")
	assert.Contains(t, msg.Text, failedBanner)
	assert.Contains(t, msg.Text, "*[staging]* *Smoke*")
	assert.Contains(t, msg.Text, "*Error:* AssertionError: 401")
	assert.Contains(t, msg.Text, "*Duration:* 1.50s")
	assert.Contains(t, msg.Text, "`screenshots/login.png`")
	assert.Contains(t, msg.Text, "*Context:* Login flow")
	assert.Contains(t, msg.Text, "*Reason:* sandbox")
	assert.Contains(t, msg.Text, "*Context:* "+report.DefaultContext)
	assert.Contains(t, msg.Text, "https://qa.example.com/2025-01-02_03-04-05/index.html")
	assert.Equal(t, "Test FAIL: Smoke", msg.Subject)
	assert.Contains(t, msg.HTML, "Environment: staging")
}

func TestSuiteMessageAllPassed(t *testing.T) {
	t.Parallel()

	now := time.Now()
	rep := report.Build("Smoke", []report.Result{{TestName: "a", Status: report.StatusPass}}, now, now)
	msg := SuiteMessage("qa", rep, nil, "")
	assert.Contains(t, msg.Text, passedBanner)
	assert.Contains(t, msg.Text, passedLine)
	assert.NotContains(t, msg.Text, "Failed Tests")
	assert.NotContains(t, msg.Text, "🔗")
}

func TestUnifiedMessageCapsLists(t *testing.T) {
	t.Parallel()

	var results []report.Result
	for i := 0; i < 10; i++ {
		results = append(results, report.Result{TestName: fmt.Sprintf("fail_%d", i), Status: report.StatusFail, ErrorMessage: "Error: x"})
	}
	for i := 0; i < 7; i++ {
		results = append(results, report.Result{TestName: fmt.Sprintf("skip_%d", i), Status: report.StatusSkip, SkipReason: "later"})
	}
	now := time.Now()
	api := report.Build("api", results, now, now)
	smoke := report.Build("smoke", []report.Result{{TestName: "ok", Status: report.StatusPass}}, now, now)
	u := report.Unify("Combined API, SMOKE Tests", map[string]*report.SuiteReport{"api": api, "smoke": smoke}, now, now)

	msg := UnifiedMessage("qa", u, "")
	assert.Contains(t, msg.Text, "• ❌ API: 0/17 passed")
	assert.Contains(t, msg.Text, "• ✅ SMOKE: 1/1 passed")
	assert.Contains(t, msg.Text, "*❌ Failed Tests (10):*")
	assert.Contains(t, msg.Text, "8. *[API]* fail_7")
	assert.NotContains(t, msg.Text, "fail_8")
	assert.Contains(t, msg.Text, "... and 2 more failures")
	assert.Contains(t, msg.Text, "5. *[API]* skip_4")
	assert.NotContains(t, msg.Text, "skip_5")
	assert.Contains(t, msg.Text, "... and 2 more skipped tests")
	assert.Equal(t, 1, strings.Count(msg.Text, "*📊 Summary*"))
}

func TestRunURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://x.io/qa/2025-01-02_03-04-05/index.html", RunURL("https://x.io/qa/", "2025-01-02_03-04-05"))
	assert.Empty(t, RunURL("", "2025-01-02_03-04-05"))
}

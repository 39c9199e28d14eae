package alerts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/spares/internal/model"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Mail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var ist = time.FixedZone("IST", 5*3600+1800)

func inventory() []model.Item {
	return []model.Item{
		{ID: 1, Name: "Bearing", Quantity: 10, MinimumQuantity: 2},
		{ID: 2, Name: "Fuse", Quantity: 2, MinimumQuantity: 2, Rack: "B", Bin: "4"},
		{ID: 3, Name: "Gasket", Quantity: 0, MinimumQuantity: 1},
	}
}

func staticSource(items []model.Item) Source {
	return SourceFunc(func(context.Context) ([]model.Item, error) { return items, nil })
}

func mondayNine() Config {
	return Config{Weekday: time.Monday, Hour: 9, Location: ist, Recipients: []string{"stores@example.com"}}
}

func TestNextRun(t *testing.T) {
	s := NewScheduler(mondayNine(), staticSource(nil), &fakeMailer{})

	// 2024-03-04 is a Monday.
	tests := []struct {
		from time.Time
		want time.Time
	}{
		{time.Date(2024, 3, 4, 8, 0, 0, 0, ist), time.Date(2024, 3, 4, 9, 0, 0, 0, ist)},
		{time.Date(2024, 3, 4, 9, 0, 0, 0, ist), time.Date(2024, 3, 11, 9, 0, 0, 0, ist)},
		{time.Date(2024, 3, 3, 23, 0, 0, 0, ist), time.Date(2024, 3, 4, 9, 0, 0, 0, ist)},
		{time.Date(2024, 3, 6, 12, 0, 0, 0, ist), time.Date(2024, 3, 11, 9, 0, 0, 0, ist)},
		// 04:00 UTC Monday is 09:30 IST, already past.
		{time.Date(2024, 3, 4, 4, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 9, 0, 0, 0, ist)},
	}
	for _, tt := range tests {
		got := s.NextRun(tt.from)
		assert.True(t, got.Equal(tt.want), "from %s: got %s, want %s", tt.from, got, tt.want)
	}
}

func TestRunNowSendsDigest(t *testing.T) {
	mailer := &fakeMailer{}
	s := NewScheduler(mondayNine(), staticSource(inventory()), mailer)

	res, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.Equal(t, 2, res.Items)

	require.Equal(t, 1, mailer.count())
	mail := mailer.sent[0]
	assert.Equal(t, []string{"stores@example.com"}, mail.To)
	assert.Contains(t, mail.Subject, "2 item(s)")
	assert.Contains(t, mail.Text, "Gasket")
	assert.Contains(t, mail.Text, "OUT OF STOCK")
	assert.NotContains(t, mail.Text, "Bearing")
	assert.Contains(t, mail.HTML, "<strong>Fuse</strong>")

	st := s.Status()
	require.NotNil(t, st.LastRun)
	assert.True(t, st.LastRun.Sent)
	assert.False(t, st.Running)
}

func TestRunNowSkips(t *testing.T) {
	mailer := &fakeMailer{}

	cfg := mondayNine()
	cfg.Recipients = nil
	res, err := NewScheduler(cfg, staticSource(inventory()), mailer).RunNow(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, "no recipients configured", res.Reason)

	healthy := []model.Item{{Name: "Bearing", Quantity: 10, MinimumQuantity: 2}}
	res, err = NewScheduler(mondayNine(), staticSource(healthy), mailer).RunNow(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, "no low stock items", res.Reason)

	assert.Zero(t, mailer.count())
}

func TestRunNowReportsMailFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("relay refused")}
	s := NewScheduler(mondayNine(), staticSource(inventory()), mailer)

	res, err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.False(t, res.Sent)
	assert.Contains(t, s.Status().LastRun.Error, "relay refused")
}

func TestSchedulerFiresAndStops(t *testing.T) {
	mailer := &fakeMailer{}
	s := NewScheduler(mondayNine(), staticSource(inventory()), mailer)

	// Pretend it is 50ms before the scheduled time.
	base := time.Date(2024, 3, 4, 8, 59, 59, 950_000_000, ist)
	started := time.Now()
	s.now = func() time.Time { return base.Add(time.Since(started)) }

	s.Start(context.Background())
	s.Start(context.Background()) // no-op

	assert.True(t, s.Status().Running)

	require.Eventually(t, func() bool { return mailer.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		next := s.Status().NextRun
		return next != nil && next.Equal(time.Date(2024, 3, 11, 9, 0, 0, 0, ist))
	}, time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
	st := s.Status()
	assert.False(t, st.Running)
	assert.Nil(t, st.NextRun)
	assert.Equal(t, 1, mailer.count())
}

type blockingMailer struct {
	entered chan struct{}
	release chan struct{}
}

func (m *blockingMailer) Send(context.Context, Mail) error {
	close(m.entered)
	<-m.release
	return nil
}

func TestStopDuringRunLeavesNoNextRun(t *testing.T) {
	mailer := &blockingMailer{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(mondayNine(), staticSource(inventory()), mailer)

	base := time.Date(2024, 3, 4, 8, 59, 59, 950_000_000, ist)
	started := time.Now()
	s.now = func() time.Time { return base.Add(time.Since(started)) }

	s.Start(context.Background())
	select {
	case <-mailer.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled run never started")
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	require.Eventually(t, func() bool { return !s.Status().Running }, time.Second, 5*time.Millisecond)
	close(mailer.release)
	<-done

	st := s.Status()
	assert.False(t, st.Running)
	assert.Nil(t, st.NextRun, "a run finishing after Stop must not reschedule")
}

func TestStopBeforeDueSendsNothing(t *testing.T) {
	mailer := &fakeMailer{}
	s := NewScheduler(mondayNine(), staticSource(inventory()), mailer)
	s.now = func() time.Time { return time.Date(2024, 3, 4, 8, 0, 0, 0, ist) }

	s.Start(context.Background())
	s.Stop()

	assert.Zero(t, mailer.count())
	assert.Nil(t, s.Status().NextRun)
}

func TestDigestCounts(t *testing.T) {
	d := NewDigest([]model.Item{{Quantity: 0}, {Quantity: 1}, {Quantity: 4}}, time.Now())
	assert.Equal(t, 1, d.OutOfStock)
	assert.Equal(t, 2, d.Low)
	assert.Equal(t, "CRITICAL", Status(model.Item{Quantity: 2}))
	assert.Equal(t, "LOW STOCK", Status(model.Item{Quantity: 3}))
}

func TestDigestHTMLEscapes(t *testing.T) {
	d := NewDigest([]model.Item{{Name: "<script>", Quantity: 0}}, time.Now())
	html, err := d.HTML()
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestSMTPMailerCompose(t *testing.T) {
	m := &SMTPMailer{Host: "smtp.example.com", Port: 587, From: "spares@example.com"}
	msg, err := m.compose(Mail{To: []string{"a@example.com", "b@example.com"}, Subject: "Hi", Text: "plain", HTML: "<p>rich</p>"})
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, s, "Subject: Hi\r\n")
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "text/plain")
	assert.Contains(t, s, "<p>rich</p>")
	assert.True(t, strings.HasSuffix(s, "--\r\n"))
}

func TestSMTPMailerRequiresHost(t *testing.T) {
	err := (&SMTPMailer{}).Send(context.Background(), Mail{To: []string{"a@example.com"}})
	assert.Error(t, err)
}

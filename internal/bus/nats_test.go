package bus

import (
	"context"
	"encoding/json"
	"testing"

	"foodviz/internal/domain"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	drained  bool
	// closeAfter is how many IsClosed checks report open after Drain.
	closeAfter int
	checks     int
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func (f *fakeConn) IsClosed() bool {
	if !f.drained {
		return false
	}
	f.checks++
	return f.checks > f.closeAfter
}

func TestPublishConversion(t *testing.T) {
	conn := &fakeConn{}
	client := New(conn, "foodviz.conversions.")

	evt := domain.ConversionEvent{
		ProductID: "p1",
		From:      domain.ConversionPolling,
		To:        domain.ConversionSucceeded,
		ModelURL:  "https://x/m.glb",
		Attempts:  1,
	}
	if err := client.PublishConversion(context.Background(), evt); err != nil {
		t.Fatalf("PublishConversion: %v", err)
	}
	if len(conn.subjects) != 1 || conn.subjects[0] != "foodviz.conversions.succeeded" {
		t.Fatalf("subjects = %v", conn.subjects)
	}
	var got domain.ConversionEvent
	if err := json.Unmarshal(conn.payloads[0], &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.ProductID != "p1" || got.ModelURL != "https://x/m.glb" {
		t.Fatalf("payload = %+v", got)
	}

	client.Close()
	if !conn.drained {
		t.Fatalf("Close should drain the connection")
	}
}

func TestPublishConversionHonorsCancelledContext(t *testing.T) {
	conn := &fakeConn{}
	client := New(conn, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.PublishConversion(ctx, domain.ConversionEvent{ProductID: "p1"}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	if len(conn.subjects) != 0 {
		t.Fatalf("nothing should be published")
	}
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(" ", "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCloseWaitsForDrain(t *testing.T) {
	conn := &fakeConn{closeAfter: 3}
	client := New(conn, "")
	client.Close()
	if !conn.drained || !conn.IsClosed() {
		t.Fatalf("Close returned before the connection closed")
	}
	if conn.checks < 4 {
		t.Fatalf("IsClosed checked %d times, want at least 4", conn.checks)
	}

	var nilClient *Client
	nilClient.Close()
}

package amqp

import "testing"

func TestTransactionRecordedMessageRoundTrip(t *testing.T) {
	msg := NewTransactionRecordedMessage("tx-123")
	if msg.Version != 1 || msg.Timestamp.IsZero() {
		t.Fatalf("unexpected message %+v", msg)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := TransactionRecordedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "tx-123" || got.Version != 1 {
		t.Fatalf("round trip changed message: %+v", got)
	}
}

func TestTransactionRecordedMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := TransactionRecordedMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatalf("expected error")
	}
}

package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/crisis-guard/internal/crisis"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

func TestAuditService_RecordDetection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)
	payload := crisis.LogPayload{
		Category:  crisis.CategorySelfHarm,
		Country:   "US",
		Language:  crisis.LanguageEnglish,
		Timestamp: 1754006400,
	}

	mock.ExpectExec("INSERT INTO crisis_audit_events").
		WithArgs(sqlmock.AnyArg(), EventSafetyResponseIssued, crisis.CategorySelfHarm, "US", sqlmock.AnyArg(), time.Unix(1754006400, 0).UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, service.RecordDetection(context.Background(), payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogEventError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)
	mock.ExpectExec("INSERT INTO crisis_audit_events").
		WillReturnError(errors.New("connection reset"))

	err = service.LogEvent(context.Background(), AuditEvent{Category: crisis.CategoryTrafficking, Country: "IN"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compliance: failed to log audit event")
}

func TestAuditService_QueryEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "event_type", "category", "country", "language", "created_at"}).
		AddRow("evt-1", EventSafetyResponseIssued, crisis.CategorySelfHarm, "IN", "HINGLISH", now).
		AddRow("evt-2", EventSafetyResponseIssued, crisis.CategorySelfHarm, "IN", nil, now.Add(-time.Minute))

	mock.ExpectQuery("SELECT (.+) FROM crisis_audit_events").
		WithArgs(crisis.CategorySelfHarm, "IN").
		WillReturnRows(rows)

	events, err := service.QueryEvents(context.Background(), AuditFilter{
		Category: crisis.CategorySelfHarm,
		Country:  "IN",
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, crisis.LanguageHinglish, events[0].Language)
	assert.Equal(t, crisis.Language(""), events[1].Language)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventFromPayloadDefaultsTimestamp(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	evt := EventFromPayload(crisis.LogPayload{Category: crisis.CategoryAcuteMedical, Country: "DEFAULT"})
	assert.Equal(t, EventSafetyResponseIssued, evt.EventType)
	assert.True(t, evt.CreatedAt.After(before))
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSAuditSink(t *testing.T) {
	client := &fakeSQS{}
	sink := NewSQSAuditSink(client, "https://sqs.local/audit")

	err := sink.RecordDetection(context.Background(), crisis.LogPayload{
		Category:  crisis.CategoryDomesticViolence,
		Country:   "IN",
		Language:  crisis.LanguageHindi,
		Timestamp: 1754006400,
	})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "https://sqs.local/audit", *in.QueueUrl)
	assert.Equal(t, "DOMESTIC_VIOLENCE", *in.MessageAttributes["category"].StringValue)

	var evt AuditEvent
	require.NoError(t, json.Unmarshal([]byte(*in.MessageBody), &evt))
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, crisis.CategoryDomesticViolence, evt.Category)
	assert.Equal(t, crisis.LanguageHindi, evt.Language)
}

func TestSQSAuditSinkErrors(t *testing.T) {
	client := &fakeSQS{err: errors.New("throttled")}
	err := NewSQSAuditSink(client, "q").RecordDetection(context.Background(), crisis.LogPayload{})
	require.Error(t, err)

	err = NewSQSAuditSink(&fakeSQS{}, "").RecordDetection(context.Background(), crisis.LogPayload{})
	require.Error(t, err)

	assert.Panics(t, func() { NewSQSAuditSink(nil, "q") })
}

func TestLogAuditSinkOmitsMessage(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogAuditSink(logging.NewWithWriter("info", &buf))

	require.NoError(t, sink.RecordDetection(context.Background(), crisis.LogPayload{
		Category: crisis.CategorySelfHarm,
		Country:  "US",
		Language: crisis.LanguageEnglish,
	}))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "crisis audit", entry["msg"])
	assert.Equal(t, "SELF_HARM", entry["category"])
	assert.NotContains(t, entry, "message")
}

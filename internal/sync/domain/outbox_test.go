package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewOutboxItem_Defaults(t *testing.T) {
	item, err := NewOutboxItem(MutationCreate, map[string]string{"title": "hola"}, ItemOptions{})
	assert.NoError(t, err)

	_, parseErr := uuid.Parse(item.ID)
	assert.NoError(t, parseErr)
	assert.Equal(t, MutationCreate, item.Type)
	assert.Equal(t, 0, item.Retries)
	assert.False(t, item.CreatedAt.IsZero())

	// Sin clave explícita, la idempotencia se ancla al id del item
	assert.Equal(t, item.ID, item.IdempotencyKey)
	assert.Empty(t, item.TempID)
}

func TestNewOutboxItem_ExplicitOptions(t *testing.T) {
	item, err := NewOutboxItem(MutationUpdate, nil, ItemOptions{
		TempID:         "temp-1",
		IdempotencyKey: "idem-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, "temp-1", item.TempID)
	assert.Equal(t, "idem-1", item.IdempotencyKey)
}

func TestNewOutboxItem_PayloadRoundTrip(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}
	item, err := NewOutboxItem(MutationCreate, payload{Title: "nota"}, ItemOptions{})
	assert.NoError(t, err)

	var decoded payload
	assert.NoError(t, json.Unmarshal(item.Payload, &decoded))
	assert.Equal(t, "nota", decoded.Title)
}

func TestNewOutboxItem_UnmarshalablePayload(t *testing.T) {
	_, err := NewOutboxItem(MutationCreate, make(chan int), ItemOptions{})
	assert.Error(t, err)
}

func TestFlushResult_Merge(t *testing.T) {
	a := NewFlushResult()
	a.SuccessIDs = []string{"s1"}
	a.RetriedIDs = []string{"r1"}
	a.MappedIDs["temp-1"] = "srv-1"

	b := NewFlushResult()
	b.SuccessIDs = []string{"s2"}
	b.FailedIDs = []string{"f1"}
	b.Errors["f1"] = "boom"
	b.MappedIDs["temp-2"] = "srv-2"

	a.Merge(b)

	assert.Equal(t, []string{"s1", "s2"}, a.SuccessIDs)
	assert.Equal(t, []string{"f1"}, a.FailedIDs)
	assert.Equal(t, []string{"r1"}, a.RetriedIDs)
	assert.Equal(t, "srv-1", a.MappedIDs["temp-1"])
	assert.Equal(t, "srv-2", a.MappedIDs["temp-2"])
	assert.Equal(t, "boom", a.Errors["f1"])
}

func TestFlushResult_MergeNilIsNoOp(t *testing.T) {
	a := NewFlushResult()
	a.SuccessIDs = []string{"s1"}

	a.Merge(nil)

	assert.Equal(t, []string{"s1"}, a.SuccessIDs)
}

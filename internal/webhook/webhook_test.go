package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpsync/backend/internal/application/resolver"
	appsync "github.com/erpsync/backend/internal/application/sync"
	"github.com/erpsync/backend/internal/infrastructure/storage"
	"github.com/erpsync/backend/internal/platform"
)

const testSecret = "hook-secret"

func newTestIngestion(t *testing.T, api *platform.MockAPI) (*Ingestion, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	res := resolver.New(repo, api, nil)
	orch := appsync.NewOrchestrator(repo, api, res, 10, nil)
	return NewIngestion(testSecret, orch, nil), repo
}

func TestHandleOrder_ValidSignature(t *testing.T) {
	ing, repo := newTestIngestion(t, &platform.MockAPI{})

	body := []byte(`{"id":"ext_ord_1","number":"1001","status":"processing","total":5,"currency":"USD"}`)
	sig := Sign([]byte(testSecret), body)

	ack, err := ing.HandleOrder(context.Background(), body, sig)
	require.NoError(t, err)
	assert.True(t, ack.Processed)
	assert.True(t, ack.Created)

	order, err := repo.FindOrderByExternalID("ext_ord_1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "processing", order.Status)
}

func TestHandleOrder_BadSignatureTouchesNothing(t *testing.T) {
	ing, repo := newTestIngestion(t, &platform.MockAPI{})

	body := []byte(`{"id":"ext_ord_1","number":"1001"}`)

	for _, sig := range []string{"", "not-base64!!", Sign([]byte("wrong-secret"), body)} {
		_, err := ing.HandleOrder(context.Background(), body, sig)
		require.ErrorIs(t, err, ErrBadSignature)
	}

	// No entity rows and no ledger rows were written
	assert.Equal(t, 0, repo.EntityCount())
	assert.Equal(t, 0, repo.LogCount())
}

func TestHandleOrder_SignatureOverTamperedBody(t *testing.T) {
	ing, repo := newTestIngestion(t, &platform.MockAPI{})

	body := []byte(`{"id":"ext_ord_1","number":"1001","total":5}`)
	sig := Sign([]byte(testSecret), body)

	tampered := []byte(`{"id":"ext_ord_1","number":"1001","total":5000}`)
	_, err := ing.HandleOrder(context.Background(), tampered, sig)
	require.ErrorIs(t, err, ErrBadSignature)
	assert.Equal(t, 0, repo.EntityCount())
}

func TestHandleOrder_IdempotentRedelivery(t *testing.T) {
	ing, repo := newTestIngestion(t, &platform.MockAPI{})

	body := []byte(`{"id":"ext_ord_1","number":"1001","status":"processing"}`)
	sig := Sign([]byte(testSecret), body)

	first, err := ing.HandleOrder(context.Background(), body, sig)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := ing.HandleOrder(context.Background(), body, sig)
	require.NoError(t, err)
	assert.False(t, second.Created)

	assert.Equal(t, 1, repo.EntityCount())
}

func TestHandleOrder_StatusUpdateViaRedelivery(t *testing.T) {
	ing, repo := newTestIngestion(t, &platform.MockAPI{})

	first := []byte(`{"id":"ext_ord_1","number":"1001","status":"processing"}`)
	_, err := ing.HandleOrder(context.Background(), first, Sign([]byte(testSecret), first))
	require.NoError(t, err)

	second := []byte(`{"id":"ext_ord_1","number":"1001","status":"completed"}`)
	_, err = ing.HandleOrder(context.Background(), second, Sign([]byte(testSecret), second))
	require.NoError(t, err)

	order, err := repo.FindOrderByExternalID("ext_ord_1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "completed", order.Status)
}

func TestHandleOrder_DiscardsTestPayload(t *testing.T) {
	ing, repo := newTestIngestion(t, &platform.MockAPI{})

	body := []byte(`{"webhook_id":"wh_1","topic":"ping"}`)
	sig := Sign([]byte(testSecret), body)

	ack, err := ing.HandleOrder(context.Background(), body, sig)
	require.NoError(t, err)
	assert.False(t, ack.Processed)
	assert.Equal(t, 0, repo.EntityCount())
}

func TestHandleOrder_MalformedPayload(t *testing.T) {
	ing, _ := newTestIngestion(t, &platform.MockAPI{})

	body := []byte(`{not json`)
	sig := Sign([]byte(testSecret), body)

	_, err := ing.HandleOrder(context.Background(), body, sig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestHandleOrder_RejectsEmptyIdentity(t *testing.T) {
	ing, _ := newTestIngestion(t, &platform.MockAPI{})

	body := []byte(`{"status":"processing"}`)
	sig := Sign([]byte(testSecret), body)

	_, err := ing.HandleOrder(context.Background(), body, sig)
	require.Error(t, err)
}

func TestVerifySignature_EmptySecretSkipsCheck(t *testing.T) {
	ing := NewIngestion("", nil, nil)
	assert.True(t, ing.VerifySignature([]byte("anything"), ""))
}

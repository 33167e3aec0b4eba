package saga_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/sagastore/internal/saga"
)

func TestFactoryDefaultsPayload(t *testing.T) {
	f := saga.NewFactory(fulfilmentType, func() fulfilment { return fulfilment{Step: "new"} })

	s, err := saga.New(f)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.CorrelationID)
	assert.Equal(t, "new", s.Data.Step)
	assert.NotNil(t, s.Headers)
	assert.Empty(t, s.Headers)
}

func TestFactoryZeroValueWithoutConstructor(t *testing.T) {
	f := saga.NewFactory[fulfilment](fulfilmentType, nil)

	s, err := f.Create(uuid.New(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, fulfilment{}, s.Data)
}

func TestFactoryKeepsIDAndHeaders(t *testing.T) {
	f := saga.NewFactory(fulfilmentType, func() fulfilment { return fulfilment{Step: "new"} })
	id := uuid.New()
	data := fulfilment{Step: "stored"}
	headers := map[string]string{"k": "v"}

	s, err := f.Create(id, &data, headers)
	require.NoError(t, err)
	assert.Equal(t, id, s.CorrelationID)
	assert.Equal(t, "stored", s.Data.Step)
	assert.Equal(t, headers, s.Headers)

	s.SetHeader("k", "changed")
	assert.Equal(t, "v", headers["k"], "saga must own its header map")
	v, ok := s.Header("k")
	assert.True(t, ok)
	assert.Equal(t, "changed", v)
}

func TestSetHeaderAllocates(t *testing.T) {
	var s saga.Saga[fulfilment]
	s.SetHeader("a", "b")
	assert.Equal(t, map[string]string{"a": "b"}, s.Headers)
}

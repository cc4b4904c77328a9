package backend

import (
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrAndProtocol_HTTP(t *testing.T) {
	addr, proto, err := addrAndProtocol("http://localhost:8123")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8123", addr)
	assert.Equal(t, clickhouse.HTTP, proto)
}

func TestAddrAndProtocol_HTTPDefaultPort(t *testing.T) {
	addr, proto, err := addrAndProtocol("http://clickhouse.internal")
	require.NoError(t, err)
	assert.Equal(t, "clickhouse.internal:8123", addr)
	assert.Equal(t, clickhouse.HTTP, proto)
}

func TestAddrAndProtocol_NativeDefaultPort(t *testing.T) {
	addr, proto, err := addrAndProtocol("clickhouse://localhost")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", addr)
	assert.Equal(t, clickhouse.Native, proto)
}

func TestAddrAndProtocol_NativeExplicitPort(t *testing.T) {
	addr, proto, err := addrAndProtocol("clickhouse://localhost:9440")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9440", addr)
	assert.Equal(t, clickhouse.Native, proto)
}

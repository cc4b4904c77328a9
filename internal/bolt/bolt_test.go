package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/bolt/packstream"
	"github.com/clickgraph/clickgraph/internal/catalog"
)

const testSchemaYAML = `
name: social
version: "1"
default_schema: true
graph_schema:
  nodes:
    - label: User
      database: social
      table: users
      node_id: user_id
      property_mappings:
        user_id: user_id
        name: name
  relationships:
    - type: FOLLOWS
      database: social
      table: follows
      from_id: follower_id
      to_id: followee_id
      from_node: User
      to_node: User
`

func newTestBoltServer(t *testing.T) (*Server, net.Conn) {
	t.Helper()
	cat := catalog.New()
	_, err := cat.LoadContentAndRegister([]byte(testSchemaYAML))
	require.NoError(t, err)

	s := NewServer(cat, nil, nil)
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.serveConn(ctx, server)
	return s, client
}

func clientHandshake(t *testing.T, client net.Conn) {
	t.Helper()
	_, err := client.Write(bootSignature[:])
	require.NoError(t, err)

	proposals := make([]byte, 16)
	binary.BigEndian.PutUint32(proposals[0:4], uint32(8)<<8|uint32(5))
	_, err = client.Write(proposals)
	require.NoError(t, err)

	resp := make([]byte, 4)
	_, err = client.Read(resp)
	require.NoError(t, err)
	require.Equal(t, byte(5), resp[3])
	require.Equal(t, byte(8), resp[2])
}

func clientSend(t *testing.T, client net.Conn, s *packstream.Structure) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, packstream.NewEncoder(&buf).WriteValue(s))
	require.NoError(t, writeMessage(client, buf.Bytes()))
}

func clientRecv(t *testing.T, client net.Conn) *packstream.Structure {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	raw, err := readMessage(client)
	require.NoError(t, err)
	v, err := packstream.NewDecoder(bytes.NewReader(raw)).ReadValue()
	require.NoError(t, err)
	s, ok := v.(*packstream.Structure)
	require.True(t, ok)
	return s
}

func TestHandshake_NegotiatesSupportedVersion(t *testing.T) {
	_, client := newTestBoltServer(t)
	clientHandshake(t, client)
}

func TestHello_ReturnsSuccess(t *testing.T) {
	_, client := newTestBoltServer(t)
	clientHandshake(t, client)

	clientSend(t, client, &packstream.Structure{Tag: tagHello, Fields: []any{map[string]any{"user_agent": "test/1.0"}}})
	resp := clientRecv(t, client)
	require.Equal(t, byte(tagSuccess), resp.Tag)
}

func TestRunBuiltinProcedure_DbLabels(t *testing.T) {
	_, client := newTestBoltServer(t)
	clientHandshake(t, client)
	clientSend(t, client, &packstream.Structure{Tag: tagHello, Fields: []any{map[string]any{}}})
	clientRecv(t, client)

	clientSend(t, client, &packstream.Structure{Tag: tagRun, Fields: []any{"CALL db.labels()", map[string]any{}, map[string]any{}}})
	runResp := clientRecv(t, client)
	require.Equal(t, byte(tagSuccess), runResp.Tag)

	clientSend(t, client, &packstream.Structure{Tag: tagPull, Fields: []any{map[string]any{"n": int64(-1)}}})
	record := clientRecv(t, client)
	require.Equal(t, byte(tagRecord), record.Tag)

	values, ok := record.Fields[0].([]any)
	require.True(t, ok)
	require.Equal(t, "User", values[0])

	summary := clientRecv(t, client)
	require.Equal(t, byte(tagSuccess), summary.Tag)
}

func TestRunParseError_ReturnsFailure(t *testing.T) {
	_, client := newTestBoltServer(t)
	clientHandshake(t, client)
	clientSend(t, client, &packstream.Structure{Tag: tagHello, Fields: []any{map[string]any{}}})
	clientRecv(t, client)

	clientSend(t, client, &packstream.Structure{Tag: tagRun, Fields: []any{"NOT CYPHER (((", map[string]any{}, map[string]any{}}})
	resp := clientRecv(t, client)
	require.Equal(t, byte(tagFailure), resp.Tag)
}

func TestReset_ClearsPendingAndReturnsSuccess(t *testing.T) {
	_, client := newTestBoltServer(t)
	clientHandshake(t, client)
	clientSend(t, client, &packstream.Structure{Tag: tagHello, Fields: []any{map[string]any{}}})
	clientRecv(t, client)

	clientSend(t, client, &packstream.Structure{Tag: tagReset})
	resp := clientRecv(t, client)
	require.Equal(t, byte(tagSuccess), resp.Tag)
}

func TestBeginCommitRollback_AreNoOps(t *testing.T) {
	_, client := newTestBoltServer(t)
	clientHandshake(t, client)
	clientSend(t, client, &packstream.Structure{Tag: tagHello, Fields: []any{map[string]any{}}})
	clientRecv(t, client)

	for _, tag := range []byte{tagBegin, tagCommit, tagRollback} {
		clientSend(t, client, &packstream.Structure{Tag: tag})
		resp := clientRecv(t, client)
		require.Equal(t, byte(tagSuccess), resp.Tag)
	}
}

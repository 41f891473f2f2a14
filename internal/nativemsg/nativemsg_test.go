package nativemsg_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/ruminaider/profilepop/internal/nativemsg"
	"github.com/ruminaider/profilepop/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func frame(t *testing.T, payload string) []byte {
	t.Helper()
	out := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

type dispatcherFunc func(ctx context.Context, data []byte) router.Response

func (f dispatcherFunc) HandleRaw(ctx context.Context, data []byte) router.Response {
	return f(ctx, data)
}

func TestReadWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, nativemsg.WriteMessage(&buf, map[string]string{"action": "getProfiles"}))

	raw := buf.Bytes()
	assert.Equal(t, uint32(len(raw)-4), binary.LittleEndian.Uint32(raw[:4]))

	got, err := nativemsg.ReadMessage(&buf)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"getProfiles"}`, string(got))

	_, err = nativemsg.ReadMessage(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessage_Errors(t *testing.T) {
	t.Run("truncated body", func(t *testing.T) {
		data := frame(t, `{"action":"x"}`)
		_, err := nativemsg.ReadMessage(bytes.NewReader(data[:len(data)-2]))
		require.Error(t, err)
		assert.NotErrorIs(t, err, io.EOF)
	})

	t.Run("truncated length", func(t *testing.T) {
		_, err := nativemsg.ReadMessage(bytes.NewReader([]byte{1, 0}))
		require.Error(t, err)
		assert.NotErrorIs(t, err, io.EOF)
	})

	t.Run("oversized", func(t *testing.T) {
		hdr := make([]byte, 4)
		binary.LittleEndian.PutUint32(hdr, nativemsg.MaxRequestBytes+1)
		_, err := nativemsg.ReadMessage(bytes.NewReader(hdr))
		assert.ErrorIs(t, err, nativemsg.ErrTooLarge)
	})
}

func TestWriteMessage_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := nativemsg.WriteMessage(&buf, strings.Repeat("x", nativemsg.MaxResponseBytes))
	assert.ErrorIs(t, err, nativemsg.ErrTooLarge)
	assert.Zero(t, buf.Len())
}

func TestServe(t *testing.T) {
	var in bytes.Buffer
	in.Write(frame(t, `{"action":"getProfiles"}`))
	in.Write(frame(t, `{"action":"checkLicense"}`))

	var seen []string
	d := dispatcherFunc(func(_ context.Context, data []byte) router.Response {
		var env struct {
			Action string `json:"action"`
		}
		require.NoError(t, json.Unmarshal(data, &env))
		seen = append(seen, env.Action)
		return router.Response{Success: true}
	})

	var out bytes.Buffer
	require.NoError(t, nativemsg.Serve(context.Background(), &in, &out, d, zap.NewNop()))
	assert.Equal(t, []string{"getProfiles", "checkLicense"}, seen)

	for i := 0; i < 2; i++ {
		msg, err := nativemsg.ReadMessage(&out)
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true}`, string(msg))
	}
}

func TestServe_OversizedResponseBecomesFailure(t *testing.T) {
	var in bytes.Buffer
	in.Write(frame(t, `{"action":"exportProfiles"}`))

	d := dispatcherFunc(func(context.Context, []byte) router.Response {
		return router.Response{Success: true, Error: &router.Failure{Message: strings.Repeat("x", nativemsg.MaxResponseBytes)}}
	})

	var out bytes.Buffer
	require.NoError(t, nativemsg.Serve(context.Background(), &in, &out, d, zap.NewNop()))

	msg, err := nativemsg.ReadMessage(&out)
	require.NoError(t, err)
	var resp router.Response
	require.NoError(t, json.Unmarshal(msg, &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, router.KindInternal, resp.Error.Kind)
}

func TestServe_StopsOnCorruptStream(t *testing.T) {
	in := bytes.NewReader([]byte{5, 0, 0, 0, '{'})
	d := dispatcherFunc(func(context.Context, []byte) router.Response { return router.Response{Success: true} })

	err := nativemsg.Serve(context.Background(), in, io.Discard, d, zap.NewNop())
	assert.Error(t, err)
}

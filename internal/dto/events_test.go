package dto_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
	"github.com/sujal-2301/SyncCanvasLab/internal/dto"
)

func TestDecodeEvent_JoinRoom(t *testing.T) {
	event, ack, err := dto.DecodeEvent([]byte(`{"event":"join-room","data":{"roomCode":"abc123","username":"Alice"},"ack":7}`))
	require.NoError(t, err)
	require.NotNil(t, ack)
	assert.Equal(t, int64(7), *ack)
	assert.Equal(t, dto.JoinRoom{RoomCode: "abc123", Username: "Alice"}, event)

	// 只有房间码的字符串形式
	event, ack, err = dto.DecodeEvent([]byte(`{"event":"join-room","data":"ABC123"}`))
	require.NoError(t, err)
	assert.Nil(t, ack)
	assert.Equal(t, dto.JoinRoom{RoomCode: "ABC123"}, event)

	_, ack, err = dto.DecodeEvent([]byte(`{"event":"join-room","data":{"username":"Alice"},"ack":1}`))
	assert.ErrorIs(t, err, dto.ErrInvalidPayload)
	require.NotNil(t, ack, "负载错误时仍然返回 ack")
}

func TestDecodeEvent_Drawing(t *testing.T) {
	raw := `{"event":"drawing","data":{"roomId":"ABC123","data":{"type":"path","points":[[1,2],[3,4]]}}}`
	event, _, err := dto.DecodeEvent([]byte(raw))
	require.NoError(t, err)

	d, ok := event.(dto.Drawing)
	require.True(t, ok)
	assert.Equal(t, "ABC123", d.RoomID)
	assert.Equal(t, "path", d.Kind)
	assert.False(t, d.IsClear())
	assert.JSONEq(t, `{"roomId":"ABC123","data":{"type":"path","points":[[1,2],[3,4]]}}`, string(d.Payload), "负载原样保留")

	event, _, err = dto.DecodeEvent([]byte(`{"event":"drawing","data":{"roomId":"ABC123","data":{"type":"canvas:clear"}}}`))
	require.NoError(t, err)
	assert.True(t, event.(dto.Drawing).IsClear())

	event, _, err = dto.DecodeEvent([]byte(`{"event":"drawing","data":{"roomId":"ABC123","type":"canvas:clear"}}`))
	require.NoError(t, err)
	assert.True(t, event.(dto.Drawing).IsClear(), "顶层 type 也可以表示清屏")

	_, _, err = dto.DecodeEvent([]byte(`{"event":"drawing","data":{"data":{}}}`))
	assert.ErrorIs(t, err, dto.ErrInvalidPayload)
}

func TestDecodeEvent_DrawingAcceptsAnyDataShape(t *testing.T) {
	payloads := []string{
		`{"roomId":"ABC123","data":"M0 0 L10 10"}`,
		`{"roomId":"ABC123","data":[[1,2],[3,4]]}`,
		`{"roomId":"ABC123","data":42}`,
		`{"roomId":"ABC123","data":null}`,
		`{"roomId":"ABC123","type":7,"data":{"type":["x"]}}`,
	}
	for _, p := range payloads {
		event, _, err := dto.DecodeEvent([]byte(`{"event":"drawing","data":` + p + `}`))
		require.NoError(t, err, p)
		d := event.(dto.Drawing)
		assert.Equal(t, "ABC123", d.RoomID)
		assert.Empty(t, d.Kind, p)
		assert.False(t, d.IsClear())
		assert.JSONEq(t, p, string(d.Payload), "负载原样保留")
	}
}

func TestDecodeEvent_Viewport(t *testing.T) {
	event, _, err := dto.DecodeEvent([]byte(`{"event":"viewport:update","data":{"roomId":"ABC123","viewport":[2,0,0,2,5,5]}}`))
	require.NoError(t, err)
	assert.Equal(t, dto.ViewportUpdate{RoomID: "ABC123", Viewport: domain.Viewport{2, 0, 0, 2, 5, 5}}, event)

	for _, bad := range []string{
		`{"event":"viewport:update","data":{"roomId":"ABC123"}}`,
		`{"event":"viewport:update","data":{"roomId":"ABC123","viewport":null}}`,
		`{"event":"viewport:update","data":{"roomId":"ABC123","viewport":[1,2,3]}}`,
		`{"event":"viewport:update","data":{"viewport":[1,0,0,1,0,0]}}`,
	} {
		_, _, err := dto.DecodeEvent([]byte(bad))
		assert.ErrorIs(t, err, dto.ErrInvalidPayload, bad)
	}
}

func TestDecodeEvent_Cursor(t *testing.T) {
	event, _, err := dto.DecodeEvent([]byte(`{"event":"cursor-move","data":{"x":0,"y":12.5}}`))
	require.NoError(t, err)
	assert.Equal(t, dto.CursorMove{X: 0, Y: 12.5}, event)

	_, _, err = dto.DecodeEvent([]byte(`{"event":"cursor-move","data":{"x":1}}`))
	assert.ErrorIs(t, err, dto.ErrInvalidPayload, "缺少 y 应被拒绝")

	event, _, err = dto.DecodeEvent([]byte(`{"event":"cursor-leave"}`))
	require.NoError(t, err)
	assert.Equal(t, dto.CursorLeave{}, event)
}

func TestDecodeEvent_Leave(t *testing.T) {
	event, _, err := dto.DecodeEvent([]byte(`{"event":"leave-room","data":"ABC123"}`))
	require.NoError(t, err)
	assert.Equal(t, dto.LeaveRoom{RoomID: "ABC123"}, event)
	assert.Equal(t, dto.EventLeaveRoom, event.EventName())

	event, _, err = dto.DecodeEvent([]byte(`{"event":"force-leave-room","data":{"roomId":"ABC123"}}`))
	require.NoError(t, err)
	assert.Equal(t, dto.LeaveRoom{RoomID: "ABC123", Force: true}, event)
	assert.Equal(t, dto.EventForceLeaveRoom, event.EventName())

	_, _, err = dto.DecodeEvent([]byte(`{"event":"leave-room","data":42}`))
	assert.ErrorIs(t, err, dto.ErrInvalidPayload)
}

func TestDecodeEvent_Rejections(t *testing.T) {
	_, _, err := dto.DecodeEvent([]byte(`not json`))
	assert.ErrorIs(t, err, dto.ErrMalformedFrame)

	_, _, err = dto.DecodeEvent([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, dto.ErrMalformedFrame)

	_, ack, err := dto.DecodeEvent([]byte(`{"event":"explode","ack":3}`))
	assert.ErrorIs(t, err, dto.ErrUnknownEvent)
	require.NotNil(t, ack)
	assert.Equal(t, int64(3), *ack)

	event, _, err := dto.DecodeEvent([]byte(`{"event":"heartbeat","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, dto.Heartbeat{}, event)
}

func TestNewEnvelope(t *testing.T) {
	msg, err := dto.NewEnvelope(dto.EventCanvasState, dto.NewCanvasState(nil, domain.IdentityViewport()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"canvas-state","data":{"drawingData":[],"viewport":[1,0,0,1,0,0]}}`, string(msg), "drawingData 不能为 null")

	msg, err = dto.NewEnvelope(dto.EventDrawing, json.RawMessage(`{"roomId":"X","a":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"drawing","data":{"roomId":"X","a":1}}`, string(msg))

	msg, err = dto.NewAckEnvelope(9, dto.AckResponse{Success: false, Error: "Room not found"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ack","ack":9,"data":{"success":false,"error":"Room not found"}}`, string(msg))

	msg, err = dto.NewEnvelope(dto.EventCursorUpdate, dto.NewCursorUpdate(domain.Participant{
		ID: "c1", Name: "Alice", Color: "#FF6B6B", Cursor: domain.Cursor{X: 3, Y: 4, Visible: true},
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"cursor-update","data":{"userId":"c1","name":"Alice","color":"#FF6B6B","x":3,"y":4,"visible":true}}`, string(msg))
}

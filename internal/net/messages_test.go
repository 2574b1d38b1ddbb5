package net

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gungnir/internal/common"
)

func TestParsePlaceOrder(t *testing.T) {
	want := common.PlaceOrder{
		UID: 301, OrderID: 5001, Symbol: 241, Side: common.Ask, Life: common.IOC,
		Price: 15_250, Size: 10,
	}
	msg, err := parseMessage(EncodePlaceOrder(77, want))
	require.NoError(t, err)
	assert.Equal(t, PlaceOrder, msg.TypeOf)
	assert.Equal(t, uint32(77), msg.Corr)
	assert.Equal(t, want, msg.Cmd)
}

func TestParsePlaceOrder_RejectsMalformed(t *testing.T) {
	bad := common.PlaceOrder{
		UID: 301, OrderID: 5001, Symbol: 241, Side: common.Bid, Life: common.GTC,
		Price: 15_400, Size: 0,
	}
	_, err := parseMessage(EncodePlaceOrder(1, bad))
	assert.ErrorIs(t, err, common.ErrInvalidSize)
}

func TestParseMessage_Errors(t *testing.T) {
	_, err := parseMessage([]byte{0x00})
	assert.ErrorIs(t, err, ErrMessageTooShort)

	_, err = parseMessage([]byte{0xFF, 0xFF})
	assert.ErrorIs(t, err, ErrInvalidMessageType)

	// A valid header with a truncated payload.
	truncated := EncodeMoveOrder(1, common.MoveOrder{UID: 301, OrderID: 5001, Symbol: 241, NewPrice: 15_300})
	_, err = parseMessage(truncated[:len(truncated)-4])
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestParseMessage_Heartbeat(t *testing.T) {
	msg, err := parseMessage([]byte{0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, Heartbeat, msg.TypeOf)
	assert.Nil(t, msg.Cmd)
}

// Two commands written back to back arrive as one TCP segment; framing must
// split them into exactly the messages that were sent.
func TestReadFrame_CoalescedMessages(t *testing.T) {
	first := EncodeOpenAccount(1, 301)
	second := EncodePlaceOrder(2, common.PlaceOrder{
		UID: 301, OrderID: 5001, Symbol: 241, Side: common.Bid, Life: common.GTC,
		Price: 15_400, Size: 12, ReservePrice: 15_600,
	})
	var stream bytes.Buffer
	stream.Write(Frame(first))
	stream.Write(Frame(second))

	got, err := readFrame(&stream)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = readFrame(&stream)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = readFrame(&stream)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_SplitAcrossReads(t *testing.T) {
	framed := Frame(EncodeCancelOrder(3, common.CancelOrder{UID: 301, OrderID: 5001, Symbol: 241}))

	// One byte per Read call: the frame reader must reassemble.
	got, err := readFrame(iotest.OneByteReader(bytes.NewReader(framed)))
	require.NoError(t, err)
	assert.Equal(t, framed[2:], got)
}

func TestReadFrame_RejectsOversizedFrame(t *testing.T) {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(MAX_RECV_SIZE+1))
	_, err := readFrame(bytes.NewReader(hdr[:]))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestReportRoundTrip(t *testing.T) {
	want := Report{
		TypeOf:  TradeReport,
		Corr:    77,
		Seq:     42,
		Code:    common.ResultSuccess,
		Symbol:  241,
		OrderID: 5001,
		Price:   15_400,
		Size:    10,
		Fee:     19_000,
	}
	got, err := ParseReport(want.Serialize())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseReport(want.Serialize()[:10])
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

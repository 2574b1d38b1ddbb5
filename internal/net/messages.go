package net

import (
	"encoding/binary"
	"errors"
	"io"

	"gungnir/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
	ErrMessageTooLarge    = errors.New("message exceeds maximum frame size")
)

// Frame prefixes a wire message with its 2-byte big-endian length. Messages
// are framed because TCP coalesces and fragments freely: one read is not one
// message.
func Frame(payload []byte) []byte {
	buf := binary.BigEndian.AppendUint16(make([]byte, 0, 2+len(payload)), uint16(len(payload)))
	return append(buf, payload...)
}

// readFrame reads exactly one framed message off the stream.
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n > MAX_RECV_SIZE {
		return nil, ErrMessageTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

type MessageType uint16

const (
	Heartbeat MessageType = iota
	OpenAccount
	AdjustBalance
	PlaceOrder
	MoveOrder
	CancelOrder
)

// Per-type fixed payload lengths, excluding the 2-byte type header. Every
// field is big-endian.
const (
	openAccountLen   = 4 + 8
	adjustBalanceLen = 4 + 8 + 4 + 8 + 8
	placeOrderLen    = 4 + 8 + 8 + 4 + 1 + 1 + 8 + 8 + 8
	moveOrderLen     = 4 + 8 + 8 + 4 + 8
	cancelOrderLen   = 4 + 8 + 8 + 4
)

// Message is one parsed client request: the command it carries plus the
// client-chosen correlation id echoed back on the response.
type Message struct {
	TypeOf MessageType
	Corr   uint32
	Cmd    common.Command
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < 2 {
		return Message{}, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case Heartbeat:
		return Message{TypeOf: Heartbeat}, nil
	case OpenAccount:
		return parseOpenAccount(msg)
	case AdjustBalance:
		return parseAdjustBalance(msg)
	case PlaceOrder:
		return parsePlaceOrder(msg)
	case MoveOrder:
		return parseMoveOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	default:
		return Message{}, ErrInvalidMessageType
	}
}

func parseOpenAccount(msg []byte) (Message, error) {
	if len(msg) < openAccountLen {
		return Message{}, ErrMessageTooShort
	}
	cmd, err := common.NewOpenAccount(common.UserID(binary.BigEndian.Uint64(msg[4:12])))
	if err != nil {
		return Message{}, err
	}
	return Message{
		TypeOf: OpenAccount,
		Corr:   binary.BigEndian.Uint32(msg[0:4]),
		Cmd:    cmd,
	}, nil
}

func parseAdjustBalance(msg []byte) (Message, error) {
	if len(msg) < adjustBalanceLen {
		return Message{}, ErrMessageTooShort
	}
	cmd, err := common.NewAdjustBalance(
		common.UserID(binary.BigEndian.Uint64(msg[4:12])),
		common.CurrencyID(binary.BigEndian.Uint32(msg[12:16])),
		int64(binary.BigEndian.Uint64(msg[16:24])),
		int64(binary.BigEndian.Uint64(msg[24:32])),
	)
	if err != nil {
		return Message{}, err
	}
	return Message{
		TypeOf: AdjustBalance,
		Corr:   binary.BigEndian.Uint32(msg[0:4]),
		Cmd:    cmd,
	}, nil
}

func parsePlaceOrder(msg []byte) (Message, error) {
	if len(msg) < placeOrderLen {
		return Message{}, ErrMessageTooShort
	}
	side := common.Bid
	if msg[24] != 0 {
		side = common.Ask
	}
	life := common.GTC
	if msg[25] != 0 {
		life = common.IOC
	}
	cmd, err := common.NewPlaceOrder(
		common.UserID(binary.BigEndian.Uint64(msg[4:12])),
		common.OrderID(binary.BigEndian.Uint64(msg[12:20])),
		common.SymbolID(binary.BigEndian.Uint32(msg[20:24])),
		side,
		life,
		int64(binary.BigEndian.Uint64(msg[26:34])),
		int64(binary.BigEndian.Uint64(msg[34:42])),
		int64(binary.BigEndian.Uint64(msg[42:50])),
	)
	if err != nil {
		return Message{}, err
	}
	return Message{
		TypeOf: PlaceOrder,
		Corr:   binary.BigEndian.Uint32(msg[0:4]),
		Cmd:    cmd,
	}, nil
}

func parseMoveOrder(msg []byte) (Message, error) {
	if len(msg) < moveOrderLen {
		return Message{}, ErrMessageTooShort
	}
	cmd, err := common.NewMoveOrder(
		common.UserID(binary.BigEndian.Uint64(msg[4:12])),
		common.OrderID(binary.BigEndian.Uint64(msg[12:20])),
		common.SymbolID(binary.BigEndian.Uint32(msg[20:24])),
		int64(binary.BigEndian.Uint64(msg[24:32])),
	)
	if err != nil {
		return Message{}, err
	}
	return Message{
		TypeOf: MoveOrder,
		Corr:   binary.BigEndian.Uint32(msg[0:4]),
		Cmd:    cmd,
	}, nil
}

func parseCancelOrder(msg []byte) (Message, error) {
	if len(msg) < cancelOrderLen {
		return Message{}, ErrMessageTooShort
	}
	cmd, err := common.NewCancelOrder(
		common.UserID(binary.BigEndian.Uint64(msg[4:12])),
		common.OrderID(binary.BigEndian.Uint64(msg[12:20])),
		common.SymbolID(binary.BigEndian.Uint32(msg[20:24])),
	)
	if err != nil {
		return Message{}, err
	}
	return Message{
		TypeOf: CancelOrder,
		Corr:   binary.BigEndian.Uint32(msg[0:4]),
		Cmd:    cmd,
	}, nil
}

// --- Client-side encoders ----------------------------------------------

func appendHeader(buf []byte, t MessageType, corr uint32) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(t))
	return binary.BigEndian.AppendUint32(buf, corr)
}

func EncodeOpenAccount(corr uint32, uid common.UserID) []byte {
	buf := appendHeader(nil, OpenAccount, corr)
	return binary.BigEndian.AppendUint64(buf, uint64(uid))
}

func EncodeAdjustBalance(corr uint32, cmd common.AdjustBalance) []byte {
	buf := appendHeader(nil, AdjustBalance, corr)
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.UID))
	buf = binary.BigEndian.AppendUint32(buf, uint32(cmd.Currency))
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.Amount))
	return binary.BigEndian.AppendUint64(buf, uint64(cmd.TxID))
}

func EncodePlaceOrder(corr uint32, cmd common.PlaceOrder) []byte {
	buf := appendHeader(nil, PlaceOrder, corr)
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.UID))
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.OrderID))
	buf = binary.BigEndian.AppendUint32(buf, uint32(cmd.Symbol))
	buf = append(buf, byte(cmd.Side), byte(cmd.Life))
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.Price))
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.Size))
	return binary.BigEndian.AppendUint64(buf, uint64(cmd.ReservePrice))
}

func EncodeMoveOrder(corr uint32, cmd common.MoveOrder) []byte {
	buf := appendHeader(nil, MoveOrder, corr)
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.UID))
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.OrderID))
	buf = binary.BigEndian.AppendUint32(buf, uint32(cmd.Symbol))
	return binary.BigEndian.AppendUint64(buf, uint64(cmd.NewPrice))
}

func EncodeCancelOrder(corr uint32, cmd common.CancelOrder) []byte {
	buf := appendHeader(nil, CancelOrder, corr)
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.UID))
	buf = binary.BigEndian.AppendUint64(buf, uint64(cmd.OrderID))
	return binary.BigEndian.AppendUint32(buf, uint32(cmd.Symbol))
}

// --- Server-side reports ------------------------------------------------

type ReportType byte

const (
	ResultReport ReportType = iota
	TradeReport
	ReduceReport
)

// Report is the server-to-client notification: a resolved command result,
// or an execution/reduction touching one of the session's orders.
type Report struct {
	TypeOf  ReportType
	Corr    uint32
	Seq     uint64
	Code    common.ResultCode
	Symbol  common.SymbolID
	OrderID common.OrderID
	Price   int64
	Size    int64
	Fee     int64
	Reason  byte
}

// ReportLen is the fixed wire size of one server report.
const ReportLen = 1 + 4 + 8 + 2 + 4 + 8 + 8 + 8 + 8 + 1

func (r *Report) Serialize() []byte {
	buf := make([]byte, 0, ReportLen)
	buf = append(buf, byte(r.TypeOf))
	buf = binary.BigEndian.AppendUint32(buf, r.Corr)
	buf = binary.BigEndian.AppendUint64(buf, r.Seq)
	buf = binary.BigEndian.AppendUint16(buf, uint16(r.Code))
	buf = binary.BigEndian.AppendUint32(buf, uint32(r.Symbol))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.OrderID))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.Price))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.Size))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.Fee))
	return append(buf, r.Reason)
}

// ParseReport decodes a server report on the client side.
func ParseReport(buf []byte) (Report, error) {
	if len(buf) < ReportLen {
		return Report{}, ErrMessageTooShort
	}
	return Report{
		TypeOf:  ReportType(buf[0]),
		Corr:    binary.BigEndian.Uint32(buf[1:5]),
		Seq:     binary.BigEndian.Uint64(buf[5:13]),
		Code:    common.ResultCode(binary.BigEndian.Uint16(buf[13:15])),
		Symbol:  common.SymbolID(binary.BigEndian.Uint32(buf[15:19])),
		OrderID: common.OrderID(binary.BigEndian.Uint64(buf[19:27])),
		Price:   int64(binary.BigEndian.Uint64(buf[27:35])),
		Size:    int64(binary.BigEndian.Uint64(buf[35:43])),
		Fee:     int64(binary.BigEndian.Uint64(buf[43:51])),
		Reason:  buf[51],
	}, nil
}

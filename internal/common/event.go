package common

type EventKind int

const (
	EventTrade EventKind = iota
	EventReduce
	EventReject
	EventCommandResult
	EventBookSnapshot
)

func (k EventKind) String() string {
	switch k {
	case EventTrade:
		return "TRADE"
	case EventReduce:
		return "REDUCE"
	case EventReject:
		return "REJECT"
	case EventCommandResult:
		return "COMMAND_RESULT"
	case EventBookSnapshot:
		return "BOOK_SNAPSHOT"
	}
	return "UNKNOWN"
}

type ReduceReason int

const (
	// ReduceIOCRemainder is the unmatched tail of an immediate order,
	// discarded at the end of its matching pass.
	ReduceIOCRemainder ReduceReason = iota
	// ReduceCancelled is the remaining size of an explicitly cancelled order.
	ReduceCancelled
)

func (r ReduceReason) String() string {
	if r == ReduceIOCRemainder {
		return "IOC_REMAINDER"
	}
	return "CANCELLED"
}

// Reduce records size removed from an order without a trade.
type Reduce struct {
	Symbol  SymbolID
	OrderID OrderID
	UID     UserID
	Size    int64
	Reason  ReduceReason
}

// Reject records a command that was refused before mutating any state.
type Reject struct {
	Command Command
	Reason  ResultCode
}

// CommandResult is the single terminal outcome of one applied command.
type CommandResult struct {
	Command Command
	Result  ResultCode
}

// PriceVolume is one aggregated L2 ladder rung.
type PriceVolume struct {
	Price  int64
	Volume int64
	Orders int
}

// BookSnapshot is an aggregated depth view of one book: bids best-first
// (descending price), asks best-first (ascending price).
type BookSnapshot struct {
	Symbol SymbolID
	Bids   []PriceVolume
	Asks   []PriceVolume
}

// Event is the tagged variant handed to the external event consumer. Kind
// selects which payload pointer is set; Seq is the sequence number of the
// command that produced it.
type Event struct {
	Kind EventKind
	Seq  uint64

	Trade    *Trade
	Reduce   *Reduce
	Reject   *Reject
	Result   *CommandResult
	Snapshot *BookSnapshot
}

// Handler consumes pipeline events. Implementations must not block for long:
// the publisher delivers events from a single goroutine and the pipeline
// applies backpressure when its hand-off buffer fills.
type Handler interface {
	HandleEvent(Event)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(Event)

func (f HandlerFunc) HandleEvent(ev Event) { f(ev) }

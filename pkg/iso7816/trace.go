package iso7816

// EXCHANGES:
// One logical command may take several transactions on the wire. After '61XX' or '9FXX'
// the Client fetches the rest with GET RESPONSE; after '6CXX' it re-issues the command
// with Le = XX. A Trace keeps all of them in order and its last transaction carries the
// outcome.

// Transaction is one command and the response it got.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// Continued reports whether the card asked for a follow-up command.
func (t *Transaction) Continued() bool {
	if t.Response == nil {
		return false
	}
	_, more := t.Response.Status.Available()
	_, retry := t.Response.Status.ExpectedLength()
	return more || retry
}

// Trace is the ordered list of transactions sent for one logical command.
type Trace []Transaction

// Last returns the final transaction, or nil for an empty trace.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// Status returns the status word ending the exchange, 0 when there is none.
func (t Trace) Status() StatusWord {
	last := t.Last()
	if last == nil || last.Response == nil {
		return 0
	}
	return last.Response.Status
}

// Data returns the response data of the final transaction.
func (t Trace) Data() []byte {
	last := t.Last()
	if last == nil || last.Response == nil {
		return nil
	}
	return last.Response.Data
}

// IsSuccess reports whether the exchange ended with a success status word.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	return last != nil && last.Response != nil && last.Response.Status.IsSuccess()
}

// Classify looks the final status word up in table.
func (t Trace) Classify(table StatusWordTable) Classification {
	return table.Classify(t.Status())
}

package transaction

import (
	"encoding/json"

	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/ioentry"
)

// outcomePayload is the envelope copied into the emitted success/error
// event's payload: the transaction id, the resulting error code, and
// any batch-read results so the client can recover ReadBatch output
// without a separate RegIo round trip.
type outcomePayload struct {
	TransactionID uint64   `json:"transaction_id"`
	Code          int      `json:"code"`
	BatchReads    [][]byte `json:"batch_reads,omitempty"`
}

func buildPayload(txnID uint64, runErr error, entries []*ioentry.Entry) []byte {
	p := outcomePayload{TransactionID: txnID, Code: int(errcode.CodeOf(runErr))}
	for _, e := range entries {
		if e.Tag == ioentry.ReadBatch {
			p.BatchReads = append(p.BatchReads, append([]byte(nil), e.Buf...))
		}
	}
	buf, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return buf
}

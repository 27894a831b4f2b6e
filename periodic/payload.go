package periodic

import (
	"encoding/json"

	"github.com/tbalden/google-modules-lwis/errcode"
)

// tickPayload is the envelope emitted on each periodic-I/O tick's
// success or error event, identifying which item fired.
type tickPayload struct {
	ItemID uint64 `json:"item_id"`
	Code   int    `json:"code"`
}

func successPayload(item *Item) []byte {
	buf, err := json.Marshal(tickPayload{ItemID: item.ID, Code: int(errcode.OK)})
	if err != nil {
		return nil
	}
	return buf
}

func errorPayload(itemID uint64, runErr error) []byte {
	buf, err := json.Marshal(tickPayload{ItemID: itemID, Code: int(errcode.CodeOf(runErr))})
	if err != nil {
		return nil
	}
	return buf
}

package summary

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/remarkql/internal/ui/features/common"
)

const (
	sessionName  = "remarkql"
	selectionKey = "selection"
)

// loadSelection returns the signals saved in the session, or the defaults.
func loadSelection(store sessions.Store, r *http.Request) common.Signals {
	signals := common.DefaultSignals()
	session, err := store.Get(r, sessionName)
	if err != nil {
		return signals
	}
	raw, ok := session.Values[selectionKey].(string)
	if !ok {
		return signals
	}
	_ = json.Unmarshal([]byte(raw), &signals)
	return signals
}

// saveSelection remembers the signals for the next page load. It must run
// before any response body is written.
func saveSelection(store sessions.Store, w http.ResponseWriter, r *http.Request, signals common.Signals) error {
	session, err := store.Get(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	raw, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	session.Values[selectionKey] = string(raw)
	return session.Save(r, w)
}

package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Map DIAG event ids to human readable names.
 *
 * Description:	The modem emits events from an open-ended id space and
 *		vendors keep adding to it.  The LTE ids we decode are
 *		built in; anything newer can be supplied at runtime
 *		through an events.yaml file:
 *
 *			events:
 *			  2127: NR5G_RRC_STATE_CHANGE
 *			  2128: NR5G_RRC_MESSAGE
 *
 *		The file is optional.  If none is found the built-in
 *		table is used alone and unknown ids render as EVENT_n.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type event_name_table_t struct {
	names map[int]string
}

var builtin_event_names = map[int]string{
	1605: "LTE_RRC_TIMER_STATUS",
	1606: "LTE_RRC_STATE_CHANGE",
	1609: "LTE_RRC_DL_MSG",
	1610: "LTE_RRC_UL_MSG",
	1614: "LTE_RRC_PAGING_DRX_CYCLE",
	1627: "LTE_EMM_INCOMING_MSG",
	1628: "LTE_EMM_OUTGOING_MSG",
	1629: "LTE_EMM_INCOMING_PLAIN_MSG",
	1630: "LTE_EMM_OUTGOING_PLAIN_MSG",
	1631: "LTE_EMM_TIMER_START",
	1632: "LTE_EMM_TIMER_EXPIRY",
	1633: "LTE_ESM_INCOMING_MSG",
	1634: "LTE_ESM_OUTGOING_MSG",
	1635: "LTE_ESM_INCOMING_PLAIN_MSG",
	1636: "LTE_ESM_OUTGOING_PLAIN_MSG",
	1637: "LTE_ESM_TIMER_START",
	1638: "LTE_ESM_TIMER_EXPIRY",
	1938: "LTE_ML1_PHR_REPORT",
	1966: "LTE_EMM_OTA_INCOMING_MSG",
	1967: "LTE_EMM_OTA_OUTGOING_MSG",
	1968: "LTE_ESM_OTA_INCOMING_MSG",
	1969: "LTE_ESM_OTA_OUTGOING_MSG",
	1994: "LTE_RRC_STATE_CHANGE_TRIGGER",
}

/*-------------------------------------------------------------------
 *
 * Name:        event_names_init
 *
 * Purpose:     Build the event name table, merging an events.yaml
 *		over the built-in names if one can be found.
 *
 * Inputs:	path	- Explicit file from the configuration, or ""
 *			  to try the usual locations.
 *
 *-----------------------------------------------------------------*/

func event_names_init(path string) *event_name_table_t {
	var t = &event_name_table_t{names: make(map[int]string, len(builtin_event_names))}
	for id, name := range builtin_event_names {
		t.names[id] = name
	}

	var search []string
	if path != "" {
		search = []string{path}
	} else {
		search = []string{"events.yaml"}
		if home, err := os.UserHomeDir(); err == nil {
			search = append(search, filepath.Join(home, ".config", "diagtap", "events.yaml"))
		}
		search = append(search, "/usr/share/diagtap/events.yaml")
	}

	for _, candidate := range search {
		var raw, err = os.ReadFile(candidate)
		if err != nil {
			if path != "" {
				diag_log.Warn("cannot read events file", "path", candidate, "err", err)
			}
			continue
		}

		var doc struct {
			Events map[int]string `yaml:"events"`
		}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			diag_log.Warn("malformed events file", "path", candidate, "err", err)
			continue
		}
		for id, name := range doc.Events {
			t.names[id] = name
		}
		diag_log.Debug("loaded event names", "path", candidate, "count", len(doc.Events))
		break
	}

	return t
}

func (t *event_name_table_t) name_of(id int) string {
	if name, known := t.names[id]; known {
		return name
	}
	return fmt.Sprintf("EVENT_%d", id)
}

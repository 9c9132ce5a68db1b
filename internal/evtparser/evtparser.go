// Package evtparser maps rows of a Windows Event Log CSV export
// (EvtxECmd-style output) into typed, described security events.
package evtparser

import (
	"github.com/google/uuid"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/describe"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/model"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/rowfield"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/timeparse"
)

// Reserved EventData keys injected by the mapper. Raw CSV columns never
// start with an underscore, so these cannot collide.
const (
	KeyDescription     = "_description"
	KeyNormalized      = "_normalized"
	KeyOriginalMessage = "_original_message"
)

// Core column aliases, in priority order. Everything outside this set is
// preserved verbatim in the EventData map.
var (
	timestampAliases = []string{"TimeCreated", "Timestamp", "EventTime", "TimeGenerated"}
	channelAliases   = []string{"Channel", "LogName"}
	providerAliases  = []string{"Provider", "ProviderName", "SourceName"}
	eventIDAliases   = []string{"EventId", "Id"}
	levelAliases     = []string{"Level"}
	taskAliases      = []string{"Task", "TaskCategory"}
	opcodeAliases    = []string{"Opcode"}
	keywordsAliases  = []string{"Keywords"}
	recordIDAliases  = []string{"EventRecordId", "RecordNumber", "RecordId"}
	computerAliases  = []string{"Computer", "ComputerName", "Hostname"}
	userSIDAliases   = []string{"UserId", "UserSid", "SecurityId"}
	userNameAliases  = []string{"UserName", "User"}
	processIDAliases = []string{"ProcessId", "PID"}
	threadIDAliases  = []string{"ThreadId", "TID"}
	messageAliases   = []string{"Message", "RenderedDescription", "Description"}
)

var coreAliases = flatten(
	timestampAliases, channelAliases, providerAliases, eventIDAliases,
	levelAliases, taskAliases, opcodeAliases, keywordsAliases,
	recordIDAliases, computerAliases, userSIDAliases, userNameAliases,
	processIDAliases, threadIDAliases, messageAliases,
)

// MapRow converts one canonicalized CSV row into a security event. Rows
// whose event ID does not coerce to a positive integer are skipped
// (ok=false). The describer output is injected into EventData under the
// reserved keys; the raw message is kept under KeyOriginalMessage only when
// decoding changed it.
func MapRow(evidence uuid.UUID, row *rowfield.Row) (*model.SecurityEvent, bool) {
	id := row.ResolveInt(eventIDAliases...)
	if id <= 0 {
		return nil, false
	}

	ev := &model.SecurityEvent{
		EvidenceID: evidence,
		EventID:    id,
		Timestamp:  timeparse.CoercePtr(row.Resolve(timestampAliases...)),
		Channel:    row.Resolve(channelAliases...),
		Provider:   row.Resolve(providerAliases...),
		Level:      row.Resolve(levelAliases...),
		Task:       row.Resolve(taskAliases...),
		Opcode:     row.Resolve(opcodeAliases...),
		Keywords:   row.Resolve(keywordsAliases...),
		RecordID:   row.ResolveInt(recordIDAliases...),
		Computer:   row.Resolve(computerAliases...),
		UserSID:    row.Resolve(userSIDAliases...),
		UserName:   row.Resolve(userNameAliases...),
		ProcessID:  row.ResolveInt(processIDAliases...),
		ThreadID:   row.ResolveInt(threadIDAliases...),
	}

	raw := row.Resolve(messageAliases...)
	desc, norm := describe.Event(id, raw, row)
	ev.Message = desc

	data := row.Extras(coreAliases...)
	data.Set(KeyDescription, desc)
	data.Set(KeyNormalized, norm)
	if raw != "" && raw != desc {
		data.Set(KeyOriginalMessage, raw)
	}
	ev.EventData = data

	return ev, true
}

func flatten(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Package describe decodes security-event semantics out of loosely
// structured event rows. It knows the common logon events by ID and falls
// back to a generic description for everything else; it never fails on
// missing or malformed input.
package describe

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/rowfield"
)

// Normalized is the actor/network/status projection attached to every
// decoded event. Fields that a given event class does not carry stay empty.
type Normalized struct {
	Actor         string `json:"actor"`
	Domain        string `json:"domain"`
	SrcIP         string `json:"src_ip"`
	LogonType     string `json:"logon_type,omitempty"`
	Workstation   string `json:"workstation,omitempty"`
	AuthPackage   string `json:"auth_package,omitempty"`
	Process       string `json:"process,omitempty"`
	Status        string `json:"status,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Source-address columns, tried in priority order. Different Windows event
// templates and parser versions disagree on the name.
var srcIPFields = []string{
	"IpAddress", "Ip", "SourceIp", "SourceIPAddress",
	"SourceNetworkAddress", "ClientAddress", "RemoteHost",
}

// Event produces a human-readable description and normalized projection for
// one raw event row. rawMessage is the already-resolved message column, used
// by the generic fallback. Unknown event IDs always fall through to the
// generic form; there is no unsupported-event error.
func Event(eventID int64, rawMessage string, row *rowfield.Row) (string, Normalized) {
	ed := mergePayload(row)
	switch eventID {
	case 4624:
		return logonSuccess(ed)
	case 4625:
		return logonFailure(ed)
	}
	return generic(rawMessage, ed)
}

// mergePayload copies EventData keys out of an embedded Payload JSON blob
// into a copy of the row. Payload fields are last-resort fallbacks: existing
// columns are never overwritten. Malformed JSON is silently ignored.
func mergePayload(row *rowfield.Row) *rowfield.Row {
	out := row.Clone()
	p := strings.TrimSpace(row.Resolve("Payload"))
	if !strings.HasPrefix(p, "{") || !gjson.Valid(p) {
		return out
	}
	evd := gjson.Get(p, "EventData")
	switch {
	case evd.IsObject():
		evd.ForEach(func(k, v gjson.Result) bool {
			out.SetDefault(k.String(), v.String())
			return true
		})
	case evd.Type == gjson.String:
		out.SetDefault("EventDataString", evd.String())
	}
	return out
}

func logonSuccess(ed *rowfield.Row) (string, Normalized) {
	lt := ed.Resolve("LogonType", "Logon_Type")
	who := ed.Resolve("TargetUserName", "UserName", "AccountName", "SubjectUserName")
	dom := ed.Resolve("TargetDomainName", "DomainName", "SubjectDomainName")
	src := ed.Resolve(srcIPFields...)
	ws := ed.Resolve("WorkstationName", "Workstation")
	pkg := ed.Resolve("AuthenticationPackageName", "PackageName")
	proc := ed.Resolve("ProcessName", "NewProcessName", "Image")

	desc := fmt.Sprintf("Logon success (4624) type=%s user=%s from=%s",
		coalesce(lt, "?"), displayUser(dom, who), coalesce(src, ws, "-"))
	if pkg != "" {
		desc += " pkg=" + pkg
	}
	if proc != "" {
		desc += " proc=" + proc
	}

	return desc, Normalized{
		Actor:       who,
		Domain:      dom,
		SrcIP:       src,
		LogonType:   lt,
		Workstation: ws,
		AuthPackage: pkg,
		Process:     proc,
		Status:      "Success",
	}
}

func logonFailure(ed *rowfield.Row) (string, Normalized) {
	lt := ed.Resolve("LogonType", "Logon_Type")
	who := ed.Resolve("TargetUserName", "UserName", "AccountName")
	dom := ed.Resolve("TargetDomainName", "DomainName")
	src := ed.Resolve(srcIPFields...)
	rsn := ed.Resolve("FailureReason", "Status", "SubStatus", "ErrorCode")
	ws := ed.Resolve("WorkstationName", "Workstation")

	desc := fmt.Sprintf("Logon failure (4625) type=%s user=%s from=%s",
		coalesce(lt, "?"), displayUser(dom, who), coalesce(src, ws, "-"))
	if rsn != "" {
		desc += " reason=" + rsn
	}

	return desc, Normalized{
		Actor:         who,
		Domain:        dom,
		SrcIP:         src,
		LogonType:     lt,
		Workstation:   ws,
		Status:        "Failure",
		FailureReason: rsn,
	}
}

func generic(rawMessage string, ed *rowfield.Row) (string, Normalized) {
	msg := rawMessage
	if msg == "" {
		msg = ed.Resolve("MapDescription")
	}
	if msg == "" {
		parts := []string{}
		for _, v := range []string{ed.Resolve("Provider"), ed.Resolve("Channel"), ed.Resolve("Level")} {
			if v != "" {
				parts = append(parts, v)
			}
		}
		msg = strings.Join(parts, " ")
	}
	if msg == "" {
		msg = "(no message)"
	}

	return msg, Normalized{
		Actor:  ed.Resolve("UserName", "TargetUserName", "SubjectUserName", "AccountName"),
		Domain: ed.Resolve("TargetDomainName", "SubjectDomainName", "DomainName"),
		SrcIP:  ed.Resolve(srcIPFields...),
	}
}

// displayUser renders DOMAIN\user when both parts are known.
func displayUser(dom, who string) string {
	if dom != "" && who != "" {
		return dom + `\` + who
	}
	if who != "" {
		return who
	}
	return "(unknown)"
}

// coalesce returns the first non-empty value.
func coalesce(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

package pack

import "fmt"

// Capabilities is the capability list advertised in the ref
// advertisement preamble (spec §6), bit-for-bit what a real git
// upload-pack advertises so off-the-shelf clients negotiate normally.
var Capabilities = []string{
	"shallow",
	"deepen-since",
	"deepen-not",
	"deepen-relative",
	"multi_ack_detailed",
	"no-done",
	"include-tag",
	"side-band-64k",
	"ofs-delta",
}

// AgentCapability renders the agent=<name>/<version> capability token.
func AgentCapability(name, version string) string {
	return fmt.Sprintf("agent=%s/%s", name, version)
}

// pktLine frames data as a single pkt-line: a 4-hex-digit length prefix
// (length includes the 4 prefix bytes) followed by the payload.
func pktLine(data string) string {
	return fmt.Sprintf("%04x%s", len(data)+4, data)
}

// flushPkt is the special zero-length pkt-line used to terminate a
// section.
const flushPkt = "0000"

// AdvertisementPreamble renders the bit-exact pkt-line framed ref
// advertisement for head_hash (spec §6):
//
//	001e# service=git-upload-pack\n
//	0000<len><sha1> HEAD\0<capability-list>\n
//	<len><sha1> refs/heads/<default-branch>\n
//	0000
//
// where each <len> is the 4-hex-digit pkt-line length of its line.
func AdvertisementPreamble(headSHA1, defaultBranch, agentName, agentVersion string) string {
	caps := append(append([]string{}, Capabilities...), AgentCapability(agentName, agentVersion))
	capList := ""
	for i, c := range caps {
		if i > 0 {
			capList += " "
		}
		capList += c
	}

	var out string
	out += pktLine("# service=git-upload-pack\n")
	out += flushPkt
	out += pktLine(fmt.Sprintf("%s HEAD\x00%s\n", headSHA1, capList))
	out += pktLine(fmt.Sprintf("%s refs/heads/%s\n", headSHA1, defaultBranch))
	out += flushPkt
	return out
}

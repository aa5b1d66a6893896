package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// command is one entry of the fixed SEND_CLI table: a name, a short help
// string, and the handler that runs it against a NodeContext with the
// already-split argument list (args[0] is the first word after the
// command name, never the name itself).
type command struct {
	name string
	help string
	run  func(ctx NodeContext, args []string) string
}

// table is the ordered, fixed command set. Order only matters for help
// text; dispatch is by exact match of the line's first word against name.
var table = []command{
	{"status", "node status summary", cmdStatus},
	{"stats", "packet and session counters", cmdStats},
	{"lifetime", "lifetime counters since first boot", cmdLifetime},
	{"radiostats", "radio min/max/avg RSSI and SNR", cmdRadioStats},
	{"packetstats", "per-payload-type packet counters", cmdPacketStats},
	{"advert", "send or configure self advertisement", cmdAdvert},
	{"nodes", "known nodes table", cmdNodes},
	{"contacts", "known contacts table", cmdContacts},
	{"contact", "show one contact by hash prefix", cmdContact},
	{"neighbours", "zero-hop neighbour table", cmdNeighbours},
	{"identity", "local public key and node hash", cmdIdentity},
	{"name", "get or set the node's display name", cmdName},
	{"location", "get, set, or clear lat/lon", cmdLocation},
	{"time", "get or set the node clock", cmdTime},
	{"nodetype", "set chat or repeater node type", cmdNodeType},
	{"passwd", "set the admin or guest password", cmdPasswd},
	{"sleep", "enable or disable deep sleep", cmdSleep},
	{"rxboost", "enable or disable the RX LNA boost", cmdRxBoost},
	{"mode", "set operating mode", cmdMode},
	{"alert", "configure node-join alerts", cmdAlert},
	{"ping", "directed ping by node hash prefix", cmdPing},
	{"newid", "generate a new identity keypair", cmdNewID},
	{"reset", "reset configuration to defaults", cmdReset},
	{"save", "persist configuration to storage", cmdSave},
	{"reboot", "reboot the node", cmdReboot},
	{"help", "list commands", nil},
}

func findCommand(name string) (command, bool) {
	for _, c := range table {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func cmdHelp(perm int) string {
	var b strings.Builder
	for _, c := range table {
		b.WriteString(c.name)
		b.WriteString(": ")
		b.WriteString(c.help)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func cmdStatus(ctx NodeContext, _ []string) string { return ctx.StatusText() }
func cmdStats(ctx NodeContext, _ []string) string  { return ctx.StatsText() }
func cmdLifetime(ctx NodeContext, _ []string) string {
	return ctx.LifetimeText()
}
func cmdRadioStats(ctx NodeContext, _ []string) string {
	return ctx.RadioStatsText()
}
func cmdPacketStats(ctx NodeContext, _ []string) string {
	return ctx.PacketStatsText()
}

func cmdAdvert(ctx NodeContext, args []string) string {
	if len(args) >= 2 && args[0] == "interval" {
		sec, err := strconv.Atoi(args[1])
		if err != nil || sec <= 0 {
			return "Err:?"
		}
		if err := ctx.SetAdvertInterval(sec); err != nil {
			return "E:1"
		}
		return "OK"
	}
	out, err := ctx.BuildLocalAdvert()
	if err != nil {
		return "E:1"
	}
	return out
}

func cmdNodes(ctx NodeContext, _ []string) string      { return ctx.NodesText() }
func cmdContacts(ctx NodeContext, _ []string) string    { return ctx.ContactsText() }
func cmdNeighbours(ctx NodeContext, _ []string) string  { return ctx.NeighboursText() }
func cmdIdentity(ctx NodeContext, _ []string) string    { return ctx.IdentityText() }

func cmdContact(ctx NodeContext, args []string) string {
	if len(args) < 1 {
		return "Err:?"
	}
	out, err := ctx.ContactText(args[0])
	if err != nil {
		return "E:2"
	}
	return out
}

func cmdName(ctx NodeContext, args []string) string {
	if len(args) == 0 {
		return ctx.Name()
	}
	name := strings.Join(args, " ")
	if err := ctx.SetName(name); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdLocation(ctx NodeContext, args []string) string {
	if len(args) == 0 {
		lat, lon, ok := ctx.Location()
		if !ok {
			return "none"
		}
		return fmt.Sprintf("%f,%f", lat, lon)
	}
	if len(args) == 1 && args[0] == "clear" {
		if err := ctx.ClearLocation(); err != nil {
			return "E:1"
		}
		return "OK"
	}
	if len(args) != 2 {
		return "Err:?"
	}
	lat, err1 := strconv.ParseFloat(args[0], 64)
	lon, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil {
		return "Err:?"
	}
	if err := ctx.SetLocation(lat, lon); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdTime(ctx NodeContext, args []string) string {
	if len(args) == 0 {
		return strconv.FormatUint(uint64(ctx.Time()), 10)
	}
	ts, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return "Err:?"
	}
	if err := ctx.SetTime(uint32(ts)); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdNodeType(ctx NodeContext, args []string) string {
	if len(args) != 1 {
		return "Err:?"
	}
	switch args[0] {
	case "chat":
		if err := ctx.SetNodeType(true); err != nil {
			return "E:1"
		}
	case "repeater":
		if err := ctx.SetNodeType(false); err != nil {
			return "E:1"
		}
	default:
		return "Err:?"
	}
	return "OK"
}

func cmdPasswd(ctx NodeContext, args []string) string {
	if len(args) != 2 {
		return "Err:?"
	}
	var admin bool
	switch args[0] {
	case "admin":
		admin = true
	case "guest":
		admin = false
	default:
		return "Err:?"
	}
	if err := ctx.SetPassword(admin, args[1]); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdSleep(ctx NodeContext, args []string) string {
	enabled, ok := parseOnOff(args)
	if !ok {
		return "Err:?"
	}
	if err := ctx.SetSleep(enabled); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdRxBoost(ctx NodeContext, args []string) string {
	enabled, ok := parseOnOff(args)
	if !ok {
		return "Err:?"
	}
	if err := ctx.SetRxBoost(enabled); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdMode(ctx NodeContext, args []string) string {
	if len(args) != 1 {
		return "Err:?"
	}
	mode, err := strconv.Atoi(args[0])
	if err != nil || mode < 0 || mode > 2 {
		return "Err:?"
	}
	if err := ctx.SetMode(mode); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdAlert(ctx NodeContext, args []string) string {
	if len(args) == 0 {
		return ctx.AlertStatus()
	}
	switch args[0] {
	case "on":
		if err := ctx.SetAlertEnabled(true); err != nil {
			return "E:1"
		}
	case "off":
		if err := ctx.SetAlertEnabled(false); err != nil {
			return "E:1"
		}
	case "clear":
		if err := ctx.ClearAlertDest(); err != nil {
			return "E:1"
		}
	case "test":
		if err := ctx.TestAlert(); err != nil {
			return "E:1"
		}
	case "dest":
		if len(args) != 2 {
			return "Err:?"
		}
		if err := ctx.SetAlertDest(args[1]); err != nil {
			return "E:2"
		}
	default:
		return "Err:?"
	}
	return "OK"
}

func cmdPing(ctx NodeContext, args []string) string {
	if len(args) != 1 {
		return "Err:?"
	}
	out, err := ctx.Ping(args[0])
	if err != nil {
		return "E:2"
	}
	return out
}

func cmdNewID(ctx NodeContext, _ []string) string {
	if err := ctx.NewIdentity(); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdReset(ctx NodeContext, _ []string) string {
	if err := ctx.ResetConfig(); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdSave(ctx NodeContext, _ []string) string {
	if err := ctx.Save(); err != nil {
		return "E:1"
	}
	return "OK"
}

func cmdReboot(ctx NodeContext, _ []string) string {
	if err := ctx.Reboot(); err != nil {
		return "E:1"
	}
	return "OK"
}

func parseOnOff(args []string) (bool, bool) {
	if len(args) != 1 {
		return false, false
	}
	switch args[0] {
	case "on":
		return true, true
	case "off":
		return false, true
	default:
		return false, false
	}
}

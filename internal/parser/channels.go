package parser

import (
	"strings"

	"wct/internal/domain/chatmsg"
)

// channelByBracketName maps a standard bracket channel label to the enum.
// English plus the bundled Russian client's names per §4.C. Lookup is
// case-insensitive; unknown names fall through to nil (drop the line).
var channelByBracketName = map[string]chatmsg.Channel{
	"say":             chatmsg.ChannelSay,
	"yell":            chatmsg.ChannelYell,
	"party":           chatmsg.ChannelParty,
	"party leader":    chatmsg.ChannelPartyLeader,
	"raid":            chatmsg.ChannelRaid,
	"raid leader":     chatmsg.ChannelRaidLeader,
	"raid warning":    chatmsg.ChannelRaidWarning,
	"guild":           chatmsg.ChannelGuild,
	"officer":         chatmsg.ChannelOfficer,
	"instance":        chatmsg.ChannelInstance,
	"instance leader": chatmsg.ChannelInstanceLeader,

	"говорит":              chatmsg.ChannelSay,
	"кричит":                chatmsg.ChannelYell,
	"группа":                chatmsg.ChannelParty,
	"лидер группы":          chatmsg.ChannelPartyLeader,
	"рейд":                  chatmsg.ChannelRaid,
	"лидер рейда":           chatmsg.ChannelRaidLeader,
	"предупреждение рейда":  chatmsg.ChannelRaidWarning,
	"гильдия":               chatmsg.ChannelGuild,
	"офицер":                chatmsg.ChannelOfficer,
	"подземелье":            chatmsg.ChannelInstance,
	"лидер подземелья":      chatmsg.ChannelInstanceLeader,
}

// channelByHyperlinkType maps the TYPE token of a "|Hchannel:TYPE|h[...]" run
// (used by the non-EN client forms, §4.C case 3) to the enum. The real
// client encodes a numeric channel id here; this pipeline only ever sees the
// helper's own re-emission of it as one of these short tags.
var channelByHyperlinkType = map[string]chatmsg.Channel{
	"SAY":             chatmsg.ChannelSay,
	"YELL":            chatmsg.ChannelYell,
	"PARTY":           chatmsg.ChannelParty,
	"PARTY_LEADER":    chatmsg.ChannelPartyLeader,
	"RAID":            chatmsg.ChannelRaid,
	"RAID_LEADER":     chatmsg.ChannelRaidLeader,
	"RAID_WARNING":    chatmsg.ChannelRaidWarning,
	"GUILD":           chatmsg.ChannelGuild,
	"OFFICER":         chatmsg.ChannelOfficer,
	"INSTANCE":        chatmsg.ChannelInstance,
	"INSTANCE_LEADER": chatmsg.ChannelInstanceLeader,
}

// verbChannel maps the say/yell verb (§4.C case 7) to the enum, English plus
// the bundled Russian client.
var verbChannel = map[string]chatmsg.Channel{
	"says":    chatmsg.ChannelSay,
	"yells":   chatmsg.ChannelYell,
	"говорит": chatmsg.ChannelSay,
	"кричит":  chatmsg.ChannelYell,
}

func lookupBracketChannel(name string) (chatmsg.Channel, bool) {
	c, ok := channelByBracketName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

func lookupHyperlinkChannel(typeToken string) (chatmsg.Channel, bool) {
	c, ok := channelByHyperlinkType[strings.ToUpper(strings.TrimSpace(typeToken))]
	return c, ok
}

func lookupVerbChannel(verb string) (chatmsg.Channel, bool) {
	c, ok := verbChannel[strings.ToLower(strings.TrimSpace(verb))]
	return c, ok
}

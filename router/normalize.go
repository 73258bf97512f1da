package router

import (
	"unicode"
	"unicode/utf8"

	"github.com/botmux/botmux/domain"
)

// Reference fields added to every normalized message record. They are
// explicit nulls when the message carries no reference, so downstream
// consumers see a stable shape.
var referenceFields = [...]string{
	"referenceId",
	"referenceContent",
	"referenceAuthorId",
	"referenceAuthorName",
	"referenceTimestamp",
}

var referenceSources = [...]string{
	"id",
	"content",
	"authorId",
	"authorName",
	"timestamp",
}

// NormalizeMessageCreate flattens message, author and guild into one
// record. Message fields keep their names; author and guild fields are
// prefixed so they cannot collide with message fields. The listenValue
// field comes from the identity's own configured parameters, never from
// the event.
func NormalizeMessageCreate(payload *domain.MessageCreatePayload, parameters map[string]any) domain.Record {
	record := cloneRecord(payload.Message)
	mergePrefixed(record, "author", payload.Author)
	mergePrefixed(record, "guild", payload.Guild)

	for i, field := range referenceFields {
		if payload.Reference != nil {
			record[field] = payload.Reference[referenceSources[i]]
		} else {
			record[field] = nil
		}
	}

	if len(payload.Attachments) > 0 {
		record["attachments"] = payload.Attachments
	}

	record["listenValue"] = parameters["listenValue"]

	return record
}

// NormalizeGuildMemberUpdate merges the old, new and guild objects into
// one record, prefixing every field with its source object. Prefixes are
// unique so keys cannot collide across sources.
func NormalizeGuildMemberUpdate(payload *domain.GuildMemberUpdatePayload) domain.Record {
	record := domain.Record{}
	mergePrefixed(record, "old", payload.Old)
	mergePrefixed(record, "new", payload.New)
	mergePrefixed(record, "guild", payload.Guild)
	return record
}

// NormalizeReaction merges the reaction and acting user into one record
// and adds the channel and guild context of the reacted message.
func NormalizeReaction(payload *domain.ReactionPayload) domain.Record {
	record := cloneRecord(payload.Reaction)
	mergePrefixed(record, "user", payload.User)
	record["channelId"] = payload.ChannelID
	record["guildId"] = payload.GuildID
	return record
}

// NormalizeRoleUpdate merges the old and new role objects into one record,
// prefixing every field with its source object.
func NormalizeRoleUpdate(payload *domain.RoleUpdatePayload) domain.Record {
	record := domain.Record{}
	mergePrefixed(record, "old", payload.Old)
	mergePrefixed(record, "new", payload.New)
	return record
}

// mergePrefixed copies every field of src into dst under
// prefix + Capitalized(field name).
func mergePrefixed(dst domain.Record, prefix string, src map[string]any) {
	for key, value := range src {
		dst[prefix+capitalize(key)] = value
	}
}

// capitalize upper-cases the first rune of s.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func cloneRecord(src map[string]any) domain.Record {
	record := make(domain.Record, len(src))
	for key, value := range src {
		record[key] = value
	}
	return record
}

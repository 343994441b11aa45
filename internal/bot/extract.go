package bot

import (
	"fmt"
	"strings"

	"ccbot/internal/telegram"
)

// Content kinds reported by ExtractContent.
const (
	KindText      = "text"
	KindCaption   = "caption"
	KindPhoto     = "photo"
	KindVideo     = "video"
	KindDocument  = "document"
	KindSticker   = "sticker"
	KindAnimation = "animation"
	KindVoice     = "voice"
	KindAudio     = "audio"
	KindForward   = "forward"
	KindReply     = "reply"
	KindPoll      = "poll"
	KindLocation  = "location"
	KindContact   = "contact"
	KindJoin      = "new_chat_members"
	KindLeave     = "left_chat_member"
	KindUnknown   = "unknown"
)

const replyPreviewLimit = 50

// ExtractContent turns a message into the text a moderator would read. The
// first matching part wins; anything unrecognised yields "[unknown]".
func ExtractContent(msg *telegram.Message) (content, kind string) {
	switch {
	case msg.Text != "":
		return msg.Text, KindText
	case msg.Caption != "":
		return msg.Caption, KindCaption
	case len(msg.Photo) > 0:
		return "[photo]", KindPhoto
	case msg.Video != nil:
		return "[video]", KindVideo
	case msg.Document != nil:
		s := "[document]"
		if msg.Document.FileName != "" {
			s += " - " + msg.Document.FileName
		}
		return s, KindDocument
	case msg.Sticker != nil:
		s := "sticker"
		if msg.Sticker.Emoji != "" {
			s += ": " + msg.Sticker.Emoji
		}
		if msg.Sticker.SetName != "" {
			s += " (" + msg.Sticker.SetName + ")"
		}
		return s, KindSticker
	case msg.Animation != nil:
		return "[GIF animation]", KindAnimation
	case msg.Voice != nil:
		return "[voice message]", KindVoice
	case msg.Audio != nil:
		s := "[audio]"
		if msg.Audio.Title != "" {
			s += " - " + msg.Audio.Title
		}
		if msg.Audio.Performer != "" {
			s += " by " + msg.Audio.Performer
		}
		return s, KindAudio
	case msg.ForwardFrom != nil || msg.ForwardFromChat != nil:
		return forwardedLabel(msg), KindForward
	case msg.ReplyToMessage != nil:
		return replyLabel(msg), KindReply
	case msg.Poll != nil:
		s := "poll: " + msg.Poll.Question
		if len(msg.Poll.Options) > 0 {
			opts := make([]string, len(msg.Poll.Options))
			for i, o := range msg.Poll.Options {
				opts[i] = o.Text
			}
			s += " - options: " + strings.Join(opts, ", ")
		}
		return s, KindPoll
	case msg.Location != nil:
		return "[location]", KindLocation
	case msg.Contact != nil:
		s := "[contact]"
		if msg.Contact.FirstName != "" {
			s += " - " + msg.Contact.FirstName
			if msg.Contact.LastName != "" {
				s += " " + msg.Contact.LastName
			}
		}
		if msg.Contact.PhoneNumber != "" {
			s += " Tel: " + msg.Contact.PhoneNumber
		}
		return s, KindContact
	case len(msg.NewChatMembers) > 0:
		names := make([]string, len(msg.NewChatMembers))
		for i := range msg.NewChatMembers {
			names[i] = memberName(&msg.NewChatMembers[i])
		}
		return "new members joined: " + strings.Join(names, ", "), KindJoin
	case msg.LeftChatMember != nil:
		return "member left: " + memberName(msg.LeftChatMember), KindLeave
	}
	return "[unknown]", KindUnknown
}

func forwardedLabel(msg *telegram.Message) string {
	var b strings.Builder
	if f := msg.ForwardFrom; f != nil {
		b.WriteString("forwarded from user: ")
		b.WriteString(f.FirstName)
		if f.LastName != "" {
			b.WriteString(" " + f.LastName)
		}
		if f.Username != "" {
			fmt.Fprintf(&b, " (@%s)", f.Username)
		}
	} else {
		title := msg.ForwardFromChat.Title
		if title == "" {
			title = "unknown"
		}
		b.WriteString("forwarded from chat: " + title)
	}
	return b.String()
}

func replyLabel(msg *telegram.Message) string {
	parent := msg.ReplyToMessage
	s := "reply to: "
	switch {
	case parent.Text != "":
		s += preview(parent.Text, replyPreviewLimit)
	case parent.Caption != "":
		s += preview(parent.Caption, replyPreviewLimit)
	default:
		s += "[non-text content]"
	}
	return s
}

func memberName(u *telegram.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if u.Username != "" {
		name += " (@" + u.Username + ")"
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown user"
	}
	return name
}

// preview cuts s to limit runes and marks the cut with "...".
func preview(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// messageParts lists the content-bearing parts present on msg, for debug
// replies.
func messageParts(msg *telegram.Message) []string {
	var parts []string
	add := func(present bool, name string) {
		if present {
			parts = append(parts, name)
		}
	}
	add(msg.Text != "", "text")
	add(msg.Caption != "", "caption")
	add(len(msg.Photo) > 0, "photo")
	add(msg.Video != nil, "video")
	add(msg.Animation != nil, "animation")
	add(msg.Voice != nil, "voice")
	add(msg.Audio != nil, "audio")
	add(msg.Document != nil, "document")
	add(msg.Sticker != nil, "sticker")
	add(msg.Poll != nil, "poll")
	add(msg.Location != nil, "location")
	add(msg.Venue != nil, "venue")
	add(msg.Contact != nil, "contact")
	add(msg.ForwardFrom != nil, "forward_from")
	add(msg.ForwardFromChat != nil, "forward_from_chat")
	add(msg.ReplyToMessage != nil, "reply_to_message")
	add(len(msg.NewChatMembers) > 0, "new_chat_members")
	add(msg.LeftChatMember != nil, "left_chat_member")
	return parts
}

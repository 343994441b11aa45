package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ccbot/internal/telegram"
)

func TestExtractContent(t *testing.T) {
	long := strings.Repeat("a", 60)

	tests := []struct {
		name        string
		msg         telegram.Message
		wantContent string
		wantKind    string
	}{
		{
			name:        "text wins over everything",
			msg:         telegram.Message{Text: "hi", Caption: "cap", Photo: []telegram.PhotoSize{{FileID: "p"}}},
			wantContent: "hi",
			wantKind:    KindText,
		},
		{
			name:        "caption",
			msg:         telegram.Message{Caption: "look", Photo: []telegram.PhotoSize{{FileID: "p"}}},
			wantContent: "look",
			wantKind:    KindCaption,
		},
		{
			name:        "photo",
			msg:         telegram.Message{Photo: []telegram.PhotoSize{{FileID: "p"}}},
			wantContent: "[photo]",
			wantKind:    KindPhoto,
		},
		{
			name:        "video",
			msg:         telegram.Message{Video: &telegram.File{FileID: "v"}},
			wantContent: "[video]",
			wantKind:    KindVideo,
		},
		{
			name:        "document with name",
			msg:         telegram.Message{Document: &telegram.Document{FileName: "offer.pdf"}},
			wantContent: "[document] - offer.pdf",
			wantKind:    KindDocument,
		},
		{
			name:        "sticker",
			msg:         telegram.Message{Sticker: &telegram.Sticker{Emoji: "😀", SetName: "faces"}},
			wantContent: "sticker: 😀 (faces)",
			wantKind:    KindSticker,
		},
		{
			name:        "animation",
			msg:         telegram.Message{Animation: &telegram.File{FileID: "a"}},
			wantContent: "[GIF animation]",
			wantKind:    KindAnimation,
		},
		{
			name:        "voice",
			msg:         telegram.Message{Voice: &telegram.File{FileID: "v"}},
			wantContent: "[voice message]",
			wantKind:    KindVoice,
		},
		{
			name:        "audio",
			msg:         telegram.Message{Audio: &telegram.Audio{Title: "Song", Performer: "Band"}},
			wantContent: "[audio] - Song by Band",
			wantKind:    KindAudio,
		},
		{
			name:        "forwarded from user",
			msg:         telegram.Message{ForwardFrom: &telegram.User{FirstName: "Ann", LastName: "Lee", Username: "ann"}},
			wantContent: "forwarded from user: Ann Lee (@ann)",
			wantKind:    KindForward,
		},
		{
			name:        "forwarded from untitled chat",
			msg:         telegram.Message{ForwardFromChat: &telegram.Chat{ID: -1}},
			wantContent: "forwarded from chat: unknown",
			wantKind:    KindForward,
		},
		{
			name:        "reply preview truncated",
			msg:         telegram.Message{ReplyToMessage: &telegram.Message{Text: long}},
			wantContent: "reply to: " + strings.Repeat("a", 50) + "...",
			wantKind:    KindReply,
		},
		{
			name:        "reply to media",
			msg:         telegram.Message{ReplyToMessage: &telegram.Message{Photo: []telegram.PhotoSize{{FileID: "p"}}}},
			wantContent: "reply to: [non-text content]",
			wantKind:    KindReply,
		},
		{
			name:        "poll",
			msg:         telegram.Message{Poll: &telegram.Poll{Question: "Lunch?", Options: []telegram.PollOption{{Text: "yes"}, {Text: "no"}}}},
			wantContent: "poll: Lunch? - options: yes, no",
			wantKind:    KindPoll,
		},
		{
			name:        "location",
			msg:         telegram.Message{Location: &telegram.Location{Latitude: 1, Longitude: 2}},
			wantContent: "[location]",
			wantKind:    KindLocation,
		},
		{
			name:        "contact",
			msg:         telegram.Message{Contact: &telegram.Contact{FirstName: "Bo", LastName: "Ng", PhoneNumber: "+100"}},
			wantContent: "[contact] - Bo Ng Tel: +100",
			wantKind:    KindContact,
		},
		{
			name:        "new members",
			msg:         telegram.Message{NewChatMembers: []telegram.User{{FirstName: "Cy"}, {}}},
			wantContent: "new members joined: Cy, unknown user",
			wantKind:    KindJoin,
		},
		{
			name:        "left member",
			msg:         telegram.Message{LeftChatMember: &telegram.User{Username: "dee"}},
			wantContent: "member left: (@dee)",
			wantKind:    KindLeave,
		},
		{
			name:        "unknown",
			msg:         telegram.Message{},
			wantContent: "[unknown]",
			wantKind:    KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, kind := ExtractContent(&tt.msg)
			assert.Equal(t, tt.wantContent, content)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestMessageParts(t *testing.T) {
	msg := &telegram.Message{Caption: "c", Photo: []telegram.PhotoSize{{FileID: "p"}}, ReplyToMessage: &telegram.Message{}}
	assert.Equal(t, []string{"caption", "photo", "reply_to_message"}, messageParts(msg))
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantArgs string
	}{
		{"/aitest", "/aitest", ""},
		{"/AITest@ccb_bot  hello world ", "/aitest", "hello world"},
		{"/aiset\ncustomParams {\"a\": 1}", "/aiset", "customParams {\"a\": 1}"},
		{"plain text", "", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, args := splitCommand(tt.text)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestScanState(t *testing.T) {
	s := NewScanState(true, []int64{-1, -2, -1})
	assert.True(t, s.Enabled())
	assert.Equal(t, []int64{-1, -2}, s.Groups())
	assert.True(t, s.Covers(-2))
	assert.False(t, s.Covers(-3))

	assert.False(t, s.AddGroup(-2))
	assert.True(t, s.AddGroup(-3))
	assert.True(t, s.RemoveGroup(-1))
	assert.False(t, s.RemoveGroup(-1))
	assert.Equal(t, []int64{-2, -3}, s.Groups())

	s.SetEnabled(false)
	assert.False(t, s.Enabled())

	empty := NewScanState(false, nil)
	assert.True(t, empty.Covers(-42))
}

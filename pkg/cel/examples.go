package cel

// ScanRuleExamples are scan.rule expressions over MessageFacts.
var ScanRuleExamples = map[string]string{
	"links_only":          `content.contains("http://") || content.contains("https://") || content.contains("t.me/")`,
	"skip_stickers":       `kind != "sticker" && kind != "animation"`,
	"text_like":           `kind in ["text", "caption", "forward", "reply"]`,
	"supergroups":         `chat_type == "supergroup"`,
	"single_group":        `chat_id == -1001234567890`,
	"long_messages":       `size(content) >= 20`,
	"no_username":         `username == ""`,
	"forwards_or_links":   `kind == "forward" || content.matches("(?i)https?://")`,
	"keyword":             `content.lowerAscii().contains("airdrop")`,
	"exclude_known_users": `!(user_id in [111111111, 222222222])`,
}

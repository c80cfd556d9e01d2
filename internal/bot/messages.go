package bot

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/eliseohh/zipperbot/internal/ledger"
	"github.com/eliseohh/zipperbot/internal/session"
	"github.com/eliseohh/zipperbot/internal/transfer"
)

const (
	msgDenied  = "🚫 *Access Denied!* Contact admin."
	msgWelcome = "📁 *Zipper Bot*\n\n" +
		"✨ Send files → /zip → Set password → Get ZIP\n" +
		"🗑 /cancel drops the files sent so far\n" +
		"📊 /status shows where you are"
	msgNoFiles         = "❌ No files found! Send files first."
	msgPasswordPrompt  = "🔑 Enter ZIP password:"
	msgCancelled       = "🗑 Session cleared. Send files to start again."
	msgNothingToCancel = "Nothing to cancel."
	msgExpired         = "⌛ Session expired. Send files to start again."
	msgPasswordTooLong = "❌ Password too long for the delivery caption. Send a shorter one:"
)

// captionLimit is Telegram's caption limit, counted in UTF-16 code units.
const captionLimit = 1024

// passwordFits reports whether the password leaves the delivery caption
// within captionLimit, whatever the part count.
func passwordFits(password string) bool {
	c := deliveryCaption(password, password != "", 99, 99).String()
	return len(utf16.Encode([]rune(c))) <= captionLimit
}

// deliveryCaption discloses the password as a code span. The password is
// never mixed into markup.
func deliveryCaption(password string, encrypted bool, part, parts int) transfer.Caption {
	c := transfer.Caption{
		transfer.Plain("🔒 Password: "),
		transfer.Code(password),
	}
	if encrypted {
		c = append(c, transfer.Plain("\n🛡️ AES-256 Encrypted"))
	} else {
		c = append(c, transfer.Plain("\n⚠️ Not encrypted (empty password)"))
	}
	if parts > 1 {
		c = append(c, transfer.Plain(fmt.Sprintf("\n📤 Part %d/%d", part, parts)))
	}
	return c
}

func statusText(sess *session.Session, idle time.Duration, st ledger.Stats) string {
	var b strings.Builder
	b.WriteString("📊 Status\n")
	if sess == nil {
		b.WriteString("State: idle\n")
	} else {
		fmt.Fprintf(&b, "State: %s\n", sess.State)
		fmt.Fprintf(&b, "Files: %d (%s)\n", len(sess.Files), humanBytes(sess.TotalSize()))
		fmt.Fprintf(&b, "Last activity: %s ago\n", idle.Round(time.Second))
	}
	fmt.Fprintf(&b, "Delivered: %d (%s) · Failed: %d", st.Delivered, humanBytes(st.Bytes), st.Failed)
	if st.Last != nil {
		fmt.Fprintf(&b, "\nLast: %s %s", st.Last.Status, st.Last.CreatedAt.Format(time.DateTime))
	}
	return b.String()
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

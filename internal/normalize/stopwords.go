package normalize

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultStopwords is the built-in stopword set used when no external
// list is configured: common CJK particles plus full/half-width
// punctuation that survives careless cleaning.
var DefaultStopwords = []string{
	"的", "了", "我", "你", "他", "她", "它", "们", "是", "有", "在", "也", "都",
	"不", "就", "吧", "吗", "呢", "啊", "哦", "嗯", "嘿", "哈", "啦", "咯", "啧",
	"唉", "呀", "哼", "吁",
	"これ", "それ", "あれ", "どれ", "ここ", "そこ", "あそこ", "どこ",
	"この", "あの", "その", "どの",
	"!", "\"", "#", "$", "%", "&", "'", "(", ")", "*", "+", ",", "-", ".",
	"/", ":", ";", "<", "=", ">", "?", "@", "[", "\\", "]", "^", "_", "`",
	"{", "|", "}", "~",
	"、", "。", "〈", "〉", "《", "》", "「", "」", "『", "』", "【", "】",
	"〔", "〕", "–", "—", "‘", "’", "“", "”", "…",
}

// LoadStopwords reads one stopword per line from path.
func LoadStopwords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stopword list %s: %w", path, err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w == "" {
			continue
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stopword list %s: %w", path, err)
	}
	return words, nil
}

package utf7_test

import (
	"testing"

	"github.com/aerc-mail/imapworker/internal/utf7"
)

var encode = []struct {
	in  string
	out string
}{
	{"", ""},
	{"abc", "abc"},
	{"&", "&-"},
	{"a&b", "a&-b"},
	{"ÿ", "&AP8-"},
	{"\x19", "&ABk-"},
	{"~peter/mail/日本語/台北", "~peter/mail/&ZeVnLIqe-/&U,BTFw-"},
	{"\U0001f60a", "&2D3eCg-"},
	{"abc ÿÿÿ & xyz", "abc &AP8A,wD,- &- xyz"},
}

func TestEncoder(t *testing.T) {
	enc := utf7.Encoding.NewEncoder()
	dec := utf7.Encoding.NewDecoder()

	for _, test := range encode {
		out, err := enc.String(test.in)
		if err != nil {
			t.Errorf("UTF7Encode(%+q) unexpected error: %v", test.in, err)
			continue
		}
		if out != test.out {
			t.Errorf("UTF7Encode(%+q) expected %+q; got %+q", test.in, test.out, out)
		}

		back, err := dec.String(out)
		if err != nil {
			t.Errorf("UTF7Decode(%+q) unexpected error: %v", out, err)
		} else if back != test.in {
			t.Errorf("UTF7Decode(UTF7Encode(%+q)) = %+q", test.in, back)
		}
	}
}

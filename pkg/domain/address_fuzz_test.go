package domain

import "testing"

// FuzzParseAddress checks that parsing never panics and that every accepted
// address round-trips through its checksummed form.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("0x0000000000000000000000000000000000000000")
	f.Add("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	f.Add("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	f.Add("'; DROP TABLE complaints;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		a, err := ParseAddress(input)
		if err != nil {
			return
		}
		again, err := ParseAddress(a.String())
		if err != nil {
			t.Fatalf("checksummed form rejected: %v", err)
		}
		if again != a {
			t.Fatal("round-trip changed address")
		}
	})
}

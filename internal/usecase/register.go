package usecase

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/argon2"
)

// batchByYear maps the year of study to the two-digit admission batch in the
// register number.
var batchByYear = map[int]string{1: "25", 2: "24", 3: "23", 4: "22"}

var registerPatterns = func() map[int]*regexp.Regexp {
	out := make(map[int]*regexp.Regexp, len(batchByYear))
	for year, batch := range batchByYear {
		out[year] = regexp.MustCompile(`^2105` + batch + `\d{5,6}$`)
	}
	return out
}()

// NormalizeRegisterNumber trims and upper-cases a register number.
func NormalizeRegisterNumber(reg string) string { return strings.ToUpper(strings.TrimSpace(reg)) }

// ValidateRegisterNumber checks the college prefix, the batch for the given
// year and the 11–12 digit length.
func ValidateRegisterNumber(reg string, year int) error {
	p, ok := registerPatterns[year]
	if !ok {
		return fmt.Errorf("year %d has no admission batch", year)
	}
	if !p.MatchString(reg) {
		return fmt.Errorf("register number must start with 2105%s and have 11-12 digits", batchByYear[year])
	}
	return nil
}

const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
)

// hashRegisterNumber returns a deterministic argon2id digest keyed by pepper
// so duplicate checks still work. An empty pepper keeps the number as is.
func hashRegisterNumber(reg, pepper string) string {
	if pepper == "" {
		return reg
	}
	sum := argon2.IDKey([]byte(reg), []byte(pepper), argonTime, argonMemory, argonThreads, argonKeyLen)
	return "argon2id$" + base64.RawStdEncoding.EncodeToString(sum)
}

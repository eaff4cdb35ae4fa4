package evolve

import (
	"math/rand"
	"sort"
	"strings"
)

// Flag domains searched by the genetic optimizer.
var (
	OptFlags   = []string{"-O2", "-O3", "-Ofast"}
	MarchFlags = []string{"", "-march=native", "-march=core-avx2", "-march=x86-64-v3", "-march=x86-64-v4"}
	MtuneFlags = []string{"", "-mtune=native", "-mtune=generic", "-mtune=core-avx2"}
	LTOFlags   = []string{"", "-flto", "-flto=auto"}

	// OptionalFlags are independent boolean toggles; each candidate carries
	// an arbitrary subset.
	OptionalFlags = []string{
		"-fno-plt",
		"-fomit-frame-pointer",
		"-funroll-loops",
		"-fno-tree-vectorize",
		"-fno-semantic-interposition",
		"-fipa-pta",
		"-maes",
		"-mpclmul",
		"-mavx2",
		"-mfma",
		"-mbmi",
		"-mbmi2",
		"-mavxvnni",
		"-mgfni",
		"-mvaes",
		"-mvpclmulqdq",
		"-mprefer-vector-width=256",
	}
)

// Candidate is one point in the flag search space. Candidates are pure
// values: two candidates with equal fields are interchangeable. Toggles are
// kept sorted so the key is canonical.
type Candidate struct {
	Opt     string
	March   string
	Mtune   string
	LTO     string
	Toggles []string
}

// NewCandidate normalizes the toggle set (sorted, deduplicated).
func NewCandidate(opt, march, mtune, lto string, toggles []string) Candidate {
	return Candidate{
		Opt:     opt,
		March:   march,
		Mtune:   mtune,
		LTO:     lto,
		Toggles: normalizeToggles(toggles),
	}
}

// Baseline is the known-good starting point seeded into generation one.
func Baseline() Candidate {
	return Candidate{Opt: "-O2"}
}

// Key builds the canonical identity string: all fields joined in fixed
// order, toggles space-joined. Used for result caching and blacklisting.
func (c Candidate) Key() string {
	return strings.Join([]string{c.Opt, c.March, c.Mtune, c.LTO, strings.Join(c.Toggles, " ")}, "|")
}

// FlagList expands the candidate into the compiler flag list handed to the
// build, with any caller-supplied base flags appended verbatim.
func (c Candidate) FlagList(baseFlags string) []string {
	flags := []string{c.Opt}
	if c.March != "" {
		flags = append(flags, c.March)
	}
	if c.Mtune != "" {
		flags = append(flags, c.Mtune)
	}
	flags = append(flags, c.Toggles...)
	if baseFlags != "" {
		flags = append(flags, strings.Fields(baseFlags)...)
	}
	return flags
}

// RandomCandidate draws every field uniformly; each toggle is included with
// probability one half.
func RandomCandidate(rng *rand.Rand) Candidate {
	var toggles []string
	for _, flag := range OptionalFlags {
		if rng.Float64() < 0.5 {
			toggles = append(toggles, flag)
		}
	}
	return NewCandidate(
		OptFlags[rng.Intn(len(OptFlags))],
		MarchFlags[rng.Intn(len(MarchFlags))],
		MtuneFlags[rng.Intn(len(MtuneFlags))],
		LTOFlags[rng.Intn(len(LTOFlags))],
		toggles,
	)
}

// Crossover inherits each scalar field from one parent chosen uniformly.
// Toggles both parents agree on are never touched; only contested flags
// (the symmetric difference) flip membership with 50% probability, starting
// from parent a's set.
func Crossover(a, b Candidate, rng *rand.Rand) Candidate {
	pick := func(x, y string) string {
		if rng.Intn(2) == 0 {
			return x
		}
		return y
	}

	mixed := make(map[string]bool, len(a.Toggles))
	for _, flag := range a.Toggles {
		mixed[flag] = true
	}
	for _, flag := range symmetricDifference(a.Toggles, b.Toggles) {
		if rng.Float64() < 0.5 {
			if mixed[flag] {
				delete(mixed, flag)
			} else {
				mixed[flag] = true
			}
		}
	}

	return NewCandidate(
		pick(a.Opt, b.Opt),
		pick(a.March, b.March),
		pick(a.Mtune, b.Mtune),
		pick(a.LTO, b.LTO),
		setToSlice(mixed),
	)
}

// Mutate replaces each scalar field with a uniformly random domain value
// with probability rate, and flips each toggle with probability rate.
func Mutate(c Candidate, rng *rand.Rand, rate float64) Candidate {
	opt, march, mtune, lto := c.Opt, c.March, c.Mtune, c.LTO

	if rng.Float64() < rate {
		opt = OptFlags[rng.Intn(len(OptFlags))]
	}
	if rng.Float64() < rate {
		march = MarchFlags[rng.Intn(len(MarchFlags))]
	}
	if rng.Float64() < rate {
		mtune = MtuneFlags[rng.Intn(len(MtuneFlags))]
	}
	if rng.Float64() < rate {
		lto = LTOFlags[rng.Intn(len(LTOFlags))]
	}

	toggles := make(map[string]bool, len(c.Toggles))
	for _, flag := range c.Toggles {
		toggles[flag] = true
	}
	for _, flag := range OptionalFlags {
		if rng.Float64() < rate {
			if toggles[flag] {
				delete(toggles, flag)
			} else {
				toggles[flag] = true
			}
		}
	}

	return NewCandidate(opt, march, mtune, lto, setToSlice(toggles))
}

// AvoidBlacklist replaces a blacklisted candidate with fresh random draws,
// bounded to a few attempts. Exhausting the attempts accepts the candidate
// anyway so the population is always filled.
func AvoidBlacklist(c Candidate, rng *rand.Rand, blacklist map[string]struct{}) Candidate {
	const maxAttempts = 8
	current := c
	for attempts := 0; attempts < maxAttempts; attempts++ {
		if _, bad := blacklist[current.Key()]; !bad {
			break
		}
		current = RandomCandidate(rng)
	}
	return current
}

func normalizeToggles(toggles []string) []string {
	set := make(map[string]bool, len(toggles))
	for _, flag := range toggles {
		set[flag] = true
	}
	return setToSlice(set)
}

func setToSlice(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for flag := range set {
		out = append(out, flag)
	}
	sort.Strings(out)
	return out
}

// symmetricDifference returns the flags present in exactly one of the two
// slices, sorted for deterministic iteration under a seeded RNG.
func symmetricDifference(a, b []string) []string {
	counts := make(map[string]int, len(a)+len(b))
	for _, flag := range a {
		counts[flag]++
	}
	for _, flag := range b {
		counts[flag]++
	}
	var out []string
	for flag, n := range counts {
		if n == 1 {
			out = append(out, flag)
		}
	}
	sort.Strings(out)
	return out
}

package ports

// Random is the pseudo-random source behind selection, shuffling and delay
// generation. *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

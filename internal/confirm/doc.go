// Package confirm implements the triple-check confirmation window.
//
// Each detection round contributes either a denomination or an absent marker
// to a fixed-size sliding Buffer. Live sessions confirm only when the whole
// window agrees; burst sessions run the window once and fall back to a
// majority vote when the rounds disagree. Ties in the vote go to the
// denomination that appeared first in the window.
package confirm

// Package encoding implements the compact byte-string form used for C++
// names and types throughout the symbol table.
//
// Encodings are built bottom-up while walking declarators: modifiers are
// prepended to the type they modify, names are appended component by
// component. Qualified names carry their component count, literals carry
// their length, so every token can be skipped without a symbol table.
package encoding

// Package prompt turns conversation state and derived context into the
// outgoing backend message list.
//
// # Policy
//
// The list is built in a fixed order:
//
//  1. A system instruction selected by mode (general, creative, code;
//     unknown modes get a neutral default), with appended clauses for
//     sentiment (negative adds empathy, positive adds enthusiasm
//     matching), an optional responseStyle preference directive, and a
//     bulleted diagnostic block for any thoughts/reflections.
//  2. If the conversation exceeds the recent window, a one-line summary of
//     the older turns as an additional system message.
//  3. The most recent turns verbatim.
//  4. The new user message, always last.
//
// Identical inputs always produce an identical list. Backend context stays
// bounded regardless of conversation length while recent exact wording is
// preserved.
package prompt

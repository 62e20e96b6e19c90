// Package gemini implements generation.Generator and generation.Checker on
// Google's Gemini API.
//
// Both adapters are credential-agnostic: the credential arrives with every
// call and a client is created lazily per credential, so one Generator can
// serve every lane. API failures are translated into generation.ErrTransient
// or generation.ErrPermanent so lanes can apply the retry policy without
// knowing anything about Gemini.
package gemini

// Package recommend turns scored combination candidates into the
// recommendation cards users actually see.
//
// Candidates are clustered by signature (recurring combinations gain a
// confidence bonus), the top clusters become cards with a synthesized
// title, description, rationale, tunable controls, and a short
// trigger/action/result storyboard, and the missing-capability hints
// collected during evaluation become what-if items describing what a new
// device or service would unlock.
package recommend

// Package diagnosis turns a digitized ECG signal into a diagnosis.
//
// Two routes are offered, both operating on collaborators passed in by the
// caller:
//
//   - Criterion based: a RiskMarkerEvaluator measures STE60 V3, QTc and
//     RA V4, and a LinearCriterion combines them into a score compared
//     against a threshold. MI when the criterion is met, BER otherwise.
//   - Network based: a Model from a pre-loaded Registry returns the
//     probability of one condition. At or above the condition's threshold the
//     condition is diagnosed, below it the result is Unknown.
//
// # Criteria
//
// Two published formulations of the STEMI criterion are in circulation and
// they disagree in coefficients, threshold and comparison direction. Both are
// available as presets (CriterionA, CriterionB) and neither is a default:
// callers must select one by name.
//
// # Results
//
// Result carries a Diagnosis and a structured explanation of how it was
// reached. Text is produced separately by Result.Explain.
package diagnosis

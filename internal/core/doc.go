// Package core provides the cleaning, loading and reporting logic of callstats.
//
// The package holds all domain logic independent of the storage engine and of
// the command line. It can be driven by the CLI, by tests, or by any other
// caller that supplies a [Store].
//
// # Flow
//
//  1. [Service.LoadUsers] reads a users source, keeps rows accepted by
//     [IsValidUser] and assigns userIds 1..N
//  2. [Service.LoadCallLogs] does the same for call logs with [IsValidCallLog]
//     and [ParseCallLog], assigning callIds 1..N
//  3. [Service.WriteUserAnalytics] writes average duration and call count per user
//  4. [Service.WriteOrderedCalls] writes all call logs ordered by user, then start time
//
// Each step is a complete pass over the current store contents.
//
// # Skipped Rows
//
// Rows that fail validation never stop a load. They are returned in
// [LoadResult.Skipped] as [SkipReason] values carrying a code:
//
//   - VAL002: integer column does not parse
//   - VAL003: required field is empty
//   - VAL004: required field is missing
//   - VAL007: wrong number of fields
//
// Source and sink I/O errors, and storage errors, are returned to the caller.
// [MapError] turns them into a short message with a reference code.
package core

// Package calendar expands service calendars into concrete service dates.
//
// A service is a weekday pattern applied to every date of an inclusive
// [start, end] range, adjusted by exceptions that add or remove single dates.
// The merge engine compares the resulting DateSets to decide whether two
// calendars denote the same service, overlapping service, or disjoint service.
package calendar

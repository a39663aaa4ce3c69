// Package schedule builds cron expressions for time-based partition definitions and
// iterates their trigger times in a timezone.
package schedule

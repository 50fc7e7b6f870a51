// Package janitor возвращает в очередь строки с протухшим claim.
//
// Диспетчер захватывает строку (claimed_at) на время отправки; если
// процесс умирает до фиксации исхода, строка зависает захваченной.
// Janitor периодически сбрасывает claims старше ClaimTTL, возвращая
// строки в pending.
//
// Janitor не реализует leader election самостоятельно — это делается
// в main.go через pg_try_advisory_lock, Tick() вызывается только лидером.
package janitor

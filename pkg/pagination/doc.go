// Package pagination walks a tid-cursored trades endpoint one page at a time.
//
// Each page request is <baseURL>?tid=<cursor>. The cursor for the next page is
// the tid of the last record of the current one, so pages are strictly
// sequential and emitted in increasing-cursor order. An empty page ends the
// walk.
//
// Example usage:
//
//	p, err := pagination.New(transport.New(transport.DefaultConfig()), pagination.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	it := p.Paginate(ctx, "https://www.mercadobitcoin.net/api/BTC/trades/", 770000)
//	for it.Next() {
//		handle(it.Page())
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// or with range-over-func:
//
//	for page, err := range p.Pages(ctx, baseURL, 770000) {
//		if err != nil {
//			return err
//		}
//		handle(page)
//	}
//
// Every page fetch is retried with a fixed delay, up to Config.MaxRetries
// attempts in total. After each emitted page the iterator sleeps
// Config.Throttle before requesting the next one, but only once the consumer
// asks for it. Both sleeps end early when ctx is cancelled.
package pagination

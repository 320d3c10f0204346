// Package ratelimit throttles requests keyed by an arbitrary string, used to
// limit how often a user can request an email code.
//
// RateLimiter keeps token buckets in process memory, so its limits apply per
// process. RedisLimiter keeps a fixed window counter in Redis and is shared by
// every instance:
//
//	limiter := ratelimit.NewRedisLimiter(client, "twofa:email_otp:send", 3, time.Minute)
//
//	ok, retryAfter, err := limiter.Allow(ctx, userID.String())
//	if err != nil {
//	    return err
//	}
//	if !ok {
//	    return fmt.Errorf("retry in %s", retryAfter)
//	}
package ratelimit

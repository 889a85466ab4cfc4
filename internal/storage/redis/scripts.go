package redis

const (
	// incrementCounterScript atomically increments today's counter, replacing
	// a counter left over from an earlier date.
	incrementCounterScript = `
local counter_key = KEYS[1]   -- wordbuddy:usage:{feature}
local index_key = KEYS[2]     -- wordbuddy:usage:features

local feature = ARGV[1]
local today = ARGV[2]

local stored_date = redis.call('HGET', counter_key, 'date')
local count

if stored_date == today then
  count = redis.call('HINCRBY', counter_key, 'count', 1)
else
  -- Lazy reset: the stored record belongs to another day
  redis.call('HSET', counter_key,
    'feature', feature,
    'date', today,
    'count', 1
  )
  count = 1
end

redis.call('SADD', index_key, feature)

return count
`

	// addResultScript stores a round result and its time-ordered indexes
	addResultScript = `
local result_key = KEYS[1]    -- wordbuddy:result:{id}
local all_index = KEYS[2]     -- wordbuddy:results
local game_index = KEYS[3]    -- wordbuddy:results:game:{game}
local session_index = KEYS[4] -- wordbuddy:results:session:{sessionID}

local id = ARGV[1]
local session_id = ARGV[2]
local game = ARGV[3]
local score = ARGV[4]
local premium = ARGV[5]
local started_at = ARGV[6]
local completed_at = ARGV[7]
local ordering = tonumber(ARGV[8])
local ttl_seconds = tonumber(ARGV[9])

redis.call('HSET', result_key,
  'id', id,
  'session_id', session_id,
  'game', game,
  'score', score,
  'premium', premium,
  'started_at', started_at,
  'completed_at', completed_at
)

redis.call('ZADD', all_index, ordering, id)
redis.call('ZADD', game_index, ordering, id)
redis.call('ZADD', session_index, ordering, id)

if ttl_seconds > 0 then
  redis.call('EXPIRE', result_key, ttl_seconds)
end

return 'OK'
`

	// deleteResultScript removes a round result and its index entries
	deleteResultScript = `
local result_key = KEYS[1]
local all_index = KEYS[2]
local prefix = ARGV[1]
local id = ARGV[2]

local game = redis.call('HGET', result_key, 'game')
local session_id = redis.call('HGET', result_key, 'session_id')

if game then
  redis.call('ZREM', prefix .. 'results:game:' .. game, id)
end
if session_id then
  redis.call('ZREM', prefix .. 'results:session:' .. session_id, id)
end
redis.call('ZREM', all_index, id)

return redis.call('DEL', result_key)
`
)

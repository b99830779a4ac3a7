// Package httpd accepts TCP connections and hands each one to a job pool.
//
// The server reads only the request line and answers with a static file:
//
//	GET / HTTP/1.1       -> 200, hello.html
//	GET /sleep HTTP/1.1  -> 200, hello.html after Config.SleepDelay
//	anything else        -> 404, 404.html
//
// Files are read from Config.Root. When the pool refuses a job because it is
// shutting down, the connection is closed without a response.
package httpd

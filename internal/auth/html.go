package auth

// Inline-styled pages served by the authorization routes. They are shown in
// the user's browser exactly once per flow, so they stay self-contained: no
// assets, no scripts.

const successPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Authentication Successful</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; background: #f5f6f8; margin: 0;
         display: flex; align-items: center; justify-content: center; height: 100vh; }
  .card { background: #fff; border-radius: 8px; box-shadow: 0 2px 12px rgba(0,0,0,.08);
          padding: 40px 48px; text-align: center; max-width: 420px; }
  h1 { color: #107c10; font-size: 22px; margin: 0 0 12px; }
  p { color: #444; margin: 0; line-height: 1.5; }
</style>
</head>
<body>
<div class="card">
  <h1>Authentication successful</h1>
  <p>Your mailbox is connected. You can close this window and return to your assistant.</p>
</div>
</body>
</html>
`

const errorPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Authentication Error</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; background: #f5f6f8; margin: 0;
         display: flex; align-items: center; justify-content: center; height: 100vh; }
  .card { background: #fff; border-radius: 8px; box-shadow: 0 2px 12px rgba(0,0,0,.08);
          padding: 40px 48px; text-align: center; max-width: 480px; }
  h1 { color: #d13438; font-size: 22px; margin: 0 0 12px; }
  p { color: #444; margin: 0; line-height: 1.5; word-break: break-word; }
</style>
</head>
<body>
<div class="card">
  <h1>Authentication error</h1>
  <p>%s</p>
</div>
</body>
</html>
`

const statusPageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Token Status</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; background: #f5f6f8; margin: 0;
         display: flex; align-items: center; justify-content: center; height: 100vh; }
  .card { background: #fff; border-radius: 8px; box-shadow: 0 2px 12px rgba(0,0,0,.08);
          padding: 40px 48px; text-align: center; max-width: 480px; }
  h1 { color: #333; font-size: 22px; margin: 0 0 12px; }
  p { color: #444; margin: 0 0 8px; line-height: 1.5; }
  .detail { color: #888; font-size: 13px; }
</style>
</head>
<body>
<div class="card">
  <h1>Token status</h1>
  <p>%s</p>
  <p class="detail">%s</p>
</div>
</body>
</html>
`

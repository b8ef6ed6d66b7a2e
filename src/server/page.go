package server

// indexTemplate is the static landing page. It connects to /ws and renders
// the snapshot documents pushed by the hub; the markup itself is not part of
// the core pipeline.
const indexTemplate = `<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Harga Emas</title>
</head>
<body>
<h1>Harga Emas</h1>
<pre id="state">memuat...</pre>
<script>
(function () {
  var out = document.getElementById("state");
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.binaryType = "arraybuffer";
  ws.onmessage = function (ev) {
    var text = typeof ev.data === "string" ? ev.data : new TextDecoder().decode(ev.data);
    var doc = JSON.parse(text);
    if (doc.ping) { return; }
    out.textContent = JSON.stringify(doc, null, 2);
  };
  ws.onclose = function () { out.textContent = "koneksi terputus"; };
})();
</script>
</body>
</html>
`

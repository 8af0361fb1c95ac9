package preview

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>alohaplay preview</title>
<style>
body { background: #111; color: #ddd; font-family: sans-serif; }
#view { display: block; margin: 1em auto; max-width: 100%; }
#controls { text-align: center; }
#status { text-align: center; font-size: 0.8em; color: #888; }
</style>
</head>
<body>
<img id="view">
<div id="controls">
  <button data-cmd="play">Play</button>
  <button data-cmd="pause">Pause</button>
  <button data-cmd="stop">Stop</button>
  <button data-cmd="step" data-value="-1">&lt;</button>
  <button data-cmd="step" data-value="1">&gt;</button>
  <input id="seek" type="number" min="0" step="0.5" value="0">
  <button id="seekbtn">Seek</button>
  <label><input id="loop" type="checkbox"> Loop</label>
  <input id="volume" type="range" min="0" max="1" step="0.05" value="1">
</div>
<div id="status"></div>
<script>
var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.binaryType = "blob";
var view = document.getElementById("view");
var status = document.getElementById("status");
var url = null;
ws.onmessage = function(ev) {
  if (typeof ev.data === "string") {
    var r = JSON.parse(ev.data);
    status.textContent = r.cmd + (r.error ? ": " + r.error : "");
    return;
  }
  if (url) URL.revokeObjectURL(url);
  url = URL.createObjectURL(ev.data);
  view.src = url;
};
ws.onclose = function() { status.textContent = "disconnected"; };
function send(cmd, value) {
  ws.send(JSON.stringify({cmd: cmd, value: value || 0}));
}
document.querySelectorAll("button[data-cmd]").forEach(function(b) {
  b.onclick = function() { send(b.dataset.cmd, parseFloat(b.dataset.value || "0")); };
});
document.getElementById("seekbtn").onclick = function() {
  send("seek", parseFloat(document.getElementById("seek").value));
};
document.getElementById("loop").onchange = function(ev) { send("loop", ev.target.checked ? 1 : 0); };
document.getElementById("volume").onchange = function(ev) { send("volume", parseFloat(ev.target.value)); };
</script>
</body>
</html>
`
